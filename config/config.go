package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Nazg-Gul/fm/backends/s3"
	"github.com/Nazg-Gul/fm/backends/sftp"
	"github.com/Nazg-Gul/fm/errors"
)

// Config is the decoded configuration file.
type Config struct {
	DefaultBackend string       `yaml:"default_backend" json:"default_backend"`
	BufferSize     int          `yaml:"buffer_size" json:"buffer_size"`
	LogLevel       string       `yaml:"log_level" json:"log_level"`
	PluginDir      string       `yaml:"plugin_dir,omitempty" json:"plugin_dir,omitempty"`
	Plugins        []string     `yaml:"plugins" json:"plugins"`
	Exclude        []string     `yaml:"exclude" json:"exclude"`
	MetricsAddr    string       `yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty"`
	S3             []S3Config   `yaml:"s3" json:"s3"`
	SFTP           []SFTPConfig `yaml:"sftp" json:"sftp"`
}

// S3Config configures one S3 backend.
type S3Config struct {
	Name                 string `yaml:"name,omitempty" json:"name,omitempty"`
	Endpoint             string `yaml:"endpoint" json:"endpoint"`
	Bucket               string `yaml:"bucket" json:"bucket"`
	AccessKey            string `yaml:"access_key" json:"access_key"`
	SecretKey            string `yaml:"secret_key" json:"secret_key"`
	UseSSL               bool   `yaml:"use_ssl" json:"use_ssl"`
	Prefix               string `yaml:"prefix" json:"prefix"`
	MultipartThreshold   int64  `yaml:"multipart_threshold,omitempty" json:"multipart_threshold,omitempty"`
	MaxRenameConcurrency int    `yaml:"max_rename_concurrency,omitempty" json:"max_rename_concurrency,omitempty"`
}

// SFTPConfig configures one SFTP backend.
type SFTPConfig struct {
	Name           string `yaml:"name,omitempty" json:"name,omitempty"`
	Host           string `yaml:"host" json:"host"`
	Port           int    `yaml:"port" json:"port"`
	User           string `yaml:"user" json:"user"`
	Password       string `yaml:"password,omitempty" json:"password,omitempty"`
	PrivateKeyFile string `yaml:"private_key_file,omitempty" json:"private_key_file,omitempty"`
	Passphrase     string `yaml:"passphrase,omitempty" json:"passphrase,omitempty"`
	HostKey        string `yaml:"host_key,omitempty" json:"host_key,omitempty"`
	KnownHostsFile string `yaml:"known_hosts_file,omitempty" json:"known_hosts_file,omitempty"`
	Timeout        string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DefaultBackend: "localfs",
		BufferSize:     4096,
		LogLevel:       "info",
		Plugins:        []string{},
		Exclude:        []string{},
		S3:             []S3Config{},
		SFTP:           []SFTPConfig{},
	}
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Backend converts c to the s3 backend configuration.
func (c S3Config) Backend() s3.Config {
	return s3.Config{
		Name:                 c.Name,
		Endpoint:             c.Endpoint,
		Bucket:               c.Bucket,
		AccessKey:            c.AccessKey,
		SecretKey:            c.SecretKey,
		UseSSL:               c.UseSSL,
		Prefix:               c.Prefix,
		MultipartThreshold:   c.MultipartThreshold,
		MaxRenameConcurrency: c.MaxRenameConcurrency,
	}
}

// Backend converts c to the sftp backend configuration, reading the
// private key file if one is set.
func (c SFTPConfig) Backend() (sftp.Config, error) {
	cfg := sftp.Config{
		Name:           c.Name,
		Host:           c.Host,
		Port:           c.Port,
		User:           c.User,
		Password:       c.Password,
		Passphrase:     c.Passphrase,
		HostKey:        c.HostKey,
		KnownHostsFile: c.KnownHostsFile,
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return sftp.Config{}, errors.WrapWithContext(err, errors.CodeInvalidArgument, "invalid timeout",
				map[string]interface{}{"host": c.Host, "timeout": c.Timeout})
		}
		cfg.Timeout = d
	}
	if c.PrivateKeyFile != "" {
		key, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return sftp.Config{}, errors.TranslateOp(err, "read private key", c.PrivateKeyFile)
		}
		cfg.PrivateKey = key
	}
	return cfg, nil
}
