package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingConfig is matched by errors.Is for any *MissingError
var ErrMissingConfig = errors.New("missing required configuration")

// MissingError lists the required keys that were not set
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingConfig, strings.Join(e.Keys, ", "))
}

func (e *MissingError) Is(target error) bool {
	return target == ErrMissingConfig
}

// Config holds all application configuration
type Config struct {
	// Directories
	MediaDir  string // where the server downloads videos
	TargetDir string // long-term archive root

	// TubeArchivist API
	VideoAPIURL  string // e.g. http://ta:8000/api/video
	APIURL       string // e.g. http://ta:8000/api (login, watched)
	Username     string
	Password     string
	ThumbBaseURL string // prefix for relative thumbnail paths

	// Archive
	VideoExtension   string // file extension the walker picks up (default: mp4)
	SidecarExtension string // metadata sidecar extension (default: json)
	WriteNFO         bool   // also render an XML descriptor next to each copy
	RemarkExisting   bool   // retry the watched update for already archived files (default: true)

	// FFmpeg
	FFmpegPath    string
	FFmpegTimeout time.Duration // default: 30m

	// Schedule mode
	Schedule   string // cron spec (default: every 6 hours)
	ServerPort string

	// Paths
	LedgerFile string // $CONFIG_DIR/tubearchive.db
	IgnoreFile string // $CONFIG_DIR/ignore.txt

	// Logging
	LogLevel string
	LogFile  string
}

// requiredKeys are checked in this order so the error message is stable
var requiredKeys = []string{
	"TA_MEDIA_FOLDER",
	"TARGET_FOLDER",
	"TA_API_VIDEO_URL",
	"TA_API_URL",
	"TA_API_USERNAME",
	"TA_API_PASSWORD",
	"THUMB_BASE_URL",
}

// Load loads configuration from environment variables and a .env file in the working directory
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads configuration from environment variables and a .env file in dir
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	v.SetDefault("VIDEO_EXTENSION", "mp4")
	v.SetDefault("SIDECAR_EXTENSION", "json")
	v.SetDefault("WRITE_NFO", false)
	v.SetDefault("REMARK_EXISTING", true)
	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("FFMPEG_TIMEOUT", "30m")
	v.SetDefault("SCHEDULE", "0 */6 * * *")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "tubearchive")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	timeout, err := time.ParseDuration(v.GetString("FFMPEG_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid FFMPEG_TIMEOUT: %w", err)
	}

	config := &Config{
		MediaDir:  v.GetString("TA_MEDIA_FOLDER"),
		TargetDir: v.GetString("TARGET_FOLDER"),

		VideoAPIURL:  strings.TrimRight(v.GetString("TA_API_VIDEO_URL"), "/"),
		APIURL:       strings.TrimRight(v.GetString("TA_API_URL"), "/"),
		Username:     v.GetString("TA_API_USERNAME"),
		Password:     v.GetString("TA_API_PASSWORD"),
		ThumbBaseURL: v.GetString("THUMB_BASE_URL"),

		VideoExtension:   strings.TrimPrefix(v.GetString("VIDEO_EXTENSION"), "."),
		SidecarExtension: strings.TrimPrefix(v.GetString("SIDECAR_EXTENSION"), "."),
		WriteNFO:         v.GetBool("WRITE_NFO"),
		RemarkExisting:   v.GetBool("REMARK_EXISTING"),

		FFmpegPath:    v.GetString("FFMPEG_PATH"),
		FFmpegTimeout: timeout,

		Schedule:   v.GetString("SCHEDULE"),
		ServerPort: v.GetString("SERVER_PORT"),

		LedgerFile: pathOrDefault(v.GetString("LEDGER_FILE"), filepath.Join(configDir, "tubearchive.db")),
		IgnoreFile: pathOrDefault(v.GetString("IGNORE_FILE"), filepath.Join(configDir, "ignore.txt")),

		LogLevel: v.GetString("LOG_LEVEL"),
		LogFile:  v.GetString("LOG_FILE"),
	}

	if config.VideoExtension == "" {
		return nil, fmt.Errorf("VIDEO_EXTENSION must not be empty")
	}
	if config.SidecarExtension == "" {
		return nil, fmt.Errorf("SIDECAR_EXTENSION must not be empty")
	}

	return config, nil
}

func pathOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
