package viper

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	spfviper "github.com/spf13/viper"
)

// EnvPrefix 是环境变量覆盖配置项时使用的前缀，
// 例如 codec.endian 对应 WIRECODEC_CODEC_ENDIAN。
const EnvPrefix = "WIRECODEC"

// Config 封装 spf13/viper 实例，对外提供精简的 YAML/JSON 配置加载接口。
type Config struct {
	v *spfviper.Viper
}

// New 创建一个空的 Config，并开启环境变量覆盖。
func New() *Config {
	v := spfviper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return &Config{v: v}
}

// LoadFile 加载 YAML 或 JSON 配置文件，类型通过扩展名推断。
func (c *Config) LoadFile(path string) error {
	c.v.SetConfigFile(path)
	if typ := configType(path); typ != "" {
		c.v.SetConfigType(typ)
	}
	if err := c.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "load config file %s", path)
	}
	return nil
}

// LoadBytes 从内存加载配置，typ 为 yaml 或 json。
func (c *Config) LoadBytes(typ string, data []byte) error {
	c.v.SetConfigType(typ)
	return c.v.ReadConfig(bytes.NewReader(data))
}

func configType(path string) string {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return "yaml"
	case ".json":
		return "json"
	default:
		return ""
	}
}

// SetDefault 设置配置项的默认值，文件与环境变量中的值优先。
func (c *Config) SetDefault(key string, value any) {
	c.v.SetDefault(key, value)
}

func (c *Config) IsSet(key string) bool {
	return c.v.IsSet(key)
}

func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// Unmarshal 将完整配置反序列化到 dst，dst 应为结构体或 map 的指针。
func (c *Config) Unmarshal(dst any) error {
	return c.v.Unmarshal(dst)
}

// UnmarshalKey 将指定 key 对应的子配置反序列化到 dst。
func (c *Config) UnmarshalKey(key string, dst any) error {
	return c.v.UnmarshalKey(key, dst)
}
