package chat

import (
	"fmt"
	"strings"
)

// Config holds the plugins.chat settings.
type Config struct {
	AttachmentsDir string `mapstructure:"attachments_dir"`
	HistoryLimit   int    `mapstructure:"history_limit"`
	SessionLimit   int    `mapstructure:"session_limit"`
	MaxImageBytes  int64  `mapstructure:"max_image_bytes"`
	MaxImageEdge   int    `mapstructure:"max_image_edge"`
	JPEGQuality    int    `mapstructure:"jpeg_quality"`
	VisionChars    int    `mapstructure:"vision_chars"`
}

// DefaultConfig returns the defaults for the chat module.
func DefaultConfig() Config {
	return Config{
		AttachmentsDir: "data/attachments",
		HistoryLimit:   8,
		SessionLimit:   25,
		MaxImageBytes:  4 << 20,
		MaxImageEdge:   1024,
		JPEGQuality:    80,
		VisionChars:    500,
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.AttachmentsDir) == "":
		return fmt.Errorf("attachments_dir is required")
	case c.HistoryLimit <= 0:
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	case c.SessionLimit <= 0:
		return fmt.Errorf("session_limit must be positive, got %d", c.SessionLimit)
	case c.MaxImageBytes <= 0:
		return fmt.Errorf("max_image_bytes must be positive, got %d", c.MaxImageBytes)
	case c.MaxImageEdge < 16:
		return fmt.Errorf("max_image_edge must be at least 16, got %d", c.MaxImageEdge)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("jpeg_quality must be between 1 and 100, got %d", c.JPEGQuality)
	case c.VisionChars <= 0:
		return fmt.Errorf("vision_chars must be positive, got %d", c.VisionChars)
	}
	return nil
}
