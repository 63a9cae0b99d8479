package wire

import (
	"encoding/binary"
	"strings"

	"github.com/lk2023060901/wirecodec/pkg/util/merr"
)

// Endian 决定所有定长数值的字节序。
type Endian uint8

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) String() string {
	switch e {
	case LittleEndian:
		return "little"
	case BigEndian:
		return "big"
	default:
		return "unknown"
	}
}

// ParseEndian 解析 little/big（大小写不敏感，也接受 le/be）。
func ParseEndian(s string) (Endian, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "little", "le", "little-endian", "":
		return LittleEndian, nil
	case "big", "be", "big-endian":
		return BigEndian, nil
	default:
		return LittleEndian, merr.WrapErrParameterInvalid("little|big", s, "unknown endian")
	}
}

// Config 是编解码配置，不可变，按值传递。
type Config struct {
	Endian Endian
}

// DefaultConfig 返回默认配置：小端序。
func DefaultConfig() Config {
	return Config{Endian: LittleEndian}
}

// WithEndian 返回替换了字节序的新配置。
func (c Config) WithEndian(e Endian) Config {
	c.Endian = e
	return c
}

func (c Config) order() binary.ByteOrder {
	if c.Endian == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
