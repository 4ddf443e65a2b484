package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendOpenCV      = "opencv"
	BackendONNXRuntime = "onnxruntime"
)

type Config struct {
	Port     int
	Password string
	Debug    bool

	// Pipeline
	DeviceIndex         int
	VideoSource         string // Overrides DeviceIndex when set (file path or stream URL)
	ConfidenceThreshold float64
	MinIntervalMs       int64
	CategoryTablePath   string
	CaptureTimeoutMs    int
	PublishTimeoutMs    int
	DisplayWindow       bool

	// Model
	ModelBackend   string
	ModelPath      string
	LabelsPath     string
	ONNXRuntimeLib string
	ModelInputSize int
	NMSThreshold   float64

	// Firebase realtime database sink
	FirebaseURL         string
	FirebaseCredentials string
	FirebasePath        string

	// MQTT sink
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTQoS      int

	// Redis sink
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
	RedisChannel  string

	// Local storage
	DatabasePath             string
	ImageDirectory           string
	ImageBufferLimit         int
	ImageBufferFlushInterval int   // seconds
	MaxImageDirectorySize    int64 // GB
	LogDirectory             string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnvAsInt("PORT", 8080),
		Password: getEnv("PASSWORD", "farmwatch"),
		Debug:    getEnvAsBool("DEBUG", false),

		DeviceIndex:         getEnvAsInt("DEVICE_INDEX", 0),
		VideoSource:         getEnv("VIDEO_SOURCE", ""),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.30),
		MinIntervalMs:       getEnvAsInt64("MIN_INTERVAL_MS", 3000),
		CategoryTablePath:   getEnv("CATEGORY_TABLE", ""),
		CaptureTimeoutMs:    getEnvAsInt("CAPTURE_TIMEOUT_MS", 5000),
		PublishTimeoutMs:    getEnvAsInt("PUBLISH_TIMEOUT_MS", 3000),
		DisplayWindow:       getEnvAsBool("DISPLAY_WINDOW", false),

		ModelBackend:   strings.ToLower(getEnv("MODEL_BACKEND", BackendOpenCV)),
		ModelPath:      getEnv("MODEL_PATH", filepath.Join(".", "models", "yolov8n.onnx")),
		LabelsPath:     getEnv("LABELS_PATH", ""),
		ONNXRuntimeLib: getEnv("ONNXRUNTIME_LIB", "onnxruntime.so"),
		ModelInputSize: getEnvAsInt("MODEL_INPUT_SIZE", 640),
		NMSThreshold:   getEnvAsFloat("NMS_THRESHOLD", 0.45),

		FirebaseURL:         strings.TrimRight(getEnv("FIREBASE_URL", ""), "/"),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		FirebasePath:        getEnv("FIREBASE_PATH", "/"),

		MQTTBroker:   getEnv("MQTT_BROKER", ""),
		MQTTTopic:    getEnv("MQTT_TOPIC", "farmwatch/summary"),
		MQTTClientID: getEnv("MQTT_CLIENT_ID", "farmwatch"),
		MQTTUsername: getEnv("MQTT_USERNAME", ""),
		MQTTPassword: getEnv("MQTT_PASSWORD", ""),
		MQTTQoS:      getEnvAsInt("MQTT_QOS", 1),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		RedisKey:      getEnv("REDIS_KEY", "farmwatch:summary"),
		RedisChannel:  getEnv("REDIS_CHANNEL", "farmwatch:updates"),

		DatabasePath:             getEnv("DB_PATH", filepath.Join(".", "data", "history.db")),
		ImageDirectory:           getEnv("IMAGE_DIR", filepath.Join(".", "images")),
		ImageBufferLimit:         getEnvAsInt("BUFFER_LIMIT", 7),
		ImageBufferFlushInterval: getEnvAsInt("FLUSH_INTERVAL", 30),
		MaxImageDirectorySize:    getEnvAsInt64("MAX_IMAGE_DIRECTORY_SIZE", 4),
		LogDirectory:             getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if math.IsNaN(c.ConfidenceThreshold) || c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.ConfidenceThreshold)
	}
	if c.MinIntervalMs < 0 {
		return fmt.Errorf("MIN_INTERVAL_MS must not be negative, got %d", c.MinIntervalMs)
	}
	if c.CaptureTimeoutMs <= 0 || c.PublishTimeoutMs <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("DEVICE_INDEX must not be negative, got %d", c.DeviceIndex)
	}
	if c.ModelBackend != BackendOpenCV && c.ModelBackend != BackendONNXRuntime {
		return fmt.Errorf("unknown MODEL_BACKEND %q", c.ModelBackend)
	}
	if c.ModelInputSize <= 0 {
		return fmt.Errorf("MODEL_INPUT_SIZE must be positive, got %d", c.ModelInputSize)
	}
	if math.IsNaN(c.NMSThreshold) || c.NMSThreshold <= 0 || c.NMSThreshold > 1 {
		return fmt.Errorf("NMS_THRESHOLD must be within (0,1], got %v", c.NMSThreshold)
	}
	if c.ImageBufferFlushInterval <= 0 {
		return fmt.Errorf("FLUSH_INTERVAL must be positive, got %d", c.ImageBufferFlushInterval)
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.MQTTQoS)
	}
	if c.FirebaseCredentials != "" && c.FirebaseURL == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS set without FIREBASE_URL")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
