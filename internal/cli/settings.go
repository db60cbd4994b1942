package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/DukeRupert/notegenie/internal/domain"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "NOTEGENIE"
	appDirName = "notegenie"

	cacheBackendFile   = "file"
	cacheBackendSQLite = "sqlite"
)

// Settings is the resolved client configuration: defaults, then
// config.toml, then NOTEGENIE_* variables, then flags.
type Settings struct {
	ServerURL    string                    `mapstructure:"server_url"`
	CacheDir     string                    `mapstructure:"cache_dir"`
	CacheBackend string                    `mapstructure:"cache_backend"`
	FFmpegPath   string                    `mapstructure:"ffmpeg_path"`
	FFprobePath  string                    `mapstructure:"ffprobe_path"`
	LogLevel     string                    `mapstructure:"log_level"`
	Profile      domain.CompressionProfile `mapstructure:"profile"`
}

func loadSettings(v *viper.Viper, configDir string) (Settings, error) {
	cacheDir, err := defaultCacheDir()
	if err != nil {
		return Settings{}, err
	}

	profile := domain.DefaultCompressionProfile()
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("cache_dir", cacheDir)
	v.SetDefault("cache_backend", cacheBackendFile)
	v.SetDefault("ffmpeg_path", "ffmpeg")
	v.SetDefault("ffprobe_path", "ffprobe")
	v.SetDefault("log_level", "warn")
	v.SetDefault("profile.width", profile.Width)
	v.SetDefault("profile.height", profile.Height)
	v.SetDefault("profile.video_bitrate", profile.VideoBitrate)
	v.SetDefault("profile.audio_bitrate", profile.AudioBitrate)
	v.SetDefault("profile.audio_channels", profile.AudioChannels)
	v.SetDefault("profile.frame_rate", profile.FrameRate)
	v.SetDefault("profile.container", profile.Container)

	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	u, err := url.Parse(s.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server_url %q must be an http(s) URL", s.ServerURL)
	}
	switch s.CacheBackend {
	case cacheBackendFile, cacheBackendSQLite:
	default:
		return fmt.Errorf("cache_backend must be %q or %q, got %q", cacheBackendFile, cacheBackendSQLite, s.CacheBackend)
	}
	if s.CacheDir == "" {
		return errors.New("cache_dir is empty")
	}
	p := s.Profile
	if p.Width <= 0 || p.Height <= 0 || p.FrameRate <= 0 || p.AudioChannels <= 0 {
		return errors.New("profile width, height, frame_rate and audio_channels must be positive")
	}
	if p.VideoBitrate == "" || p.AudioBitrate == "" {
		return errors.New("profile bitrates must be set")
	}
	return nil
}

// defaultConfigDir honours NOTEGENIE_CONFIG_DIR, then the platform config
// dir ($XDG_CONFIG_HOME on Linux).
func defaultConfigDir() (string, error) {
	if dir := os.Getenv(envPrefix + "_CONFIG_DIR"); dir != "" {
		return filepath.Clean(dir), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

func defaultCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache directory: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}
