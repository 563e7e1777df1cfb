package models

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// Config holds all the application config values.
// Not really a classical model since not saved into DB.
type Config struct {
	AppName             string        // APPNAME
	ContactEmail        string        // CONTACTEMAIL, VAPID subscriber
	Debug               bool          // DEBUG
	Port                int           // PORT
	Host                string        // HOST
	DbType              string        // DBTYPE
	DbDSN               string        // DBDSN
	OriginURL           *url.URL      // ORIGINURL, upstream app origin for the offline gateway
	EnableNotifications bool          // ENABLENOTIFICATIONS
	MaxBodySize         int64         // not documented
	EncryptionKey       string        // ENCRYPTIONKEY
	OriginalIPHeader    string        // ORIGINALIPHEADER
	OriginalProtoHeader string        // ORIGINALPROTOHEADER
	CacheVersion        string        // CACHEVERSION
	APIPrefix           string        // APIPREFIX
	PushTTL             time.Duration // PUSHTTL
	SSLMode             string        // SSLMODE
	SSLAutoCertsDir     string        // SSLAUTOCERTSDIR
	SSLCustomCertPath   string        // SSLCUSTOMCERTPATH
	SSLCustomKeyPath    string        // SSLCUSTOMKEYPATH
	VapidPublicKey      string        // VAPIDPUBLICKEY
	VapidPrivateKey     string        // VAPIDPRIVATEKEY
}

func (config *Config) New() Config {
	var defaultConfig = Config{
		AppName:             "Dating App",
		DbType:              "sqlite",
		DbDSN:               "/tmp/datingpwa.db",
		Debug:               false,
		Port:                8080,
		Host:                "127.0.0.1",
		EnableNotifications: true,
		MaxBodySize:         8192, // 8KB, enough for any real push subscription
		CacheVersion:        "v1",
		APIPrefix:           "/api/",
		PushTTL:             60 * time.Second,
		SSLMode:             "off",
		SSLAutoCertsDir:     "/tmp",
		SSLCustomCertPath:   "/ssl/cert.pem",
		SSLCustomKeyPath:    "/ssl/key.pem",
		OriginalProtoHeader: "X-Forwarded-Proto",
	}
	return defaultConfig
}

func (config *Config) Verify() {
	if config.EncryptionKey != "" && len(config.EncryptionKey) != 32 {
		log.Fatal("ENCRYPTIONKEY must be 32 characters. You can use `openssl rand -hex 16` to generate it")
	}
	if config.EnableNotifications {
		if config.VapidPrivateKey == "" || config.VapidPublicKey == "" {
			log.Printf("ENABLENOTIFICATIONS is true but VAPIDPRIVATEKEY and VAPIDPUBLICKEY are not both set.")
			log.Printf("Push notifications will stay disabled until they are configured.")
			log.Printf("If you have never defined them, here are some fresh values generated just for you.")
			if privateKey, publicKey, err := webpush.GenerateVAPIDKeys(); err == nil {
				log.Printf("VAPIDPUBLICKEY=\"%s\"", publicKey)
				log.Printf("VAPIDPRIVATEKEY=\"%s\"", privateKey)
			}
			log.Printf("Add them to the environment variables. VAPIDPRIVATEKEY is sensitive, keep it secret.")
			config.EnableNotifications = false
		} else if config.ContactEmail == "" {
			log.Printf("CONTACTEMAIL is not set; some push services reject VAPID requests without a subscriber contact.")
		}
	}
	config.SSLMode = strings.ToLower(config.SSLMode)
	if config.SSLMode != "off" && config.SSLMode != "auto" && config.SSLMode != "custom" && config.SSLMode != "proxy" {
		log.Fatal("SSLMODE must be one of off, auto, custom, proxy")
	}
	if !strings.HasPrefix(config.APIPrefix, "/") || !strings.HasSuffix(config.APIPrefix, "/") {
		log.Fatal("APIPREFIX must start and end with a slash")
	}
	if config.OriginURL != nil {
		log.Printf("Offline gateway enabled, proxying origin %s", config.OriginURL)
	}
}

// PushConfigured reports whether the web push transport has a usable VAPID key pair.
func (config *Config) PushConfigured() bool {
	return config.EnableNotifications && config.VapidPublicKey != "" && config.VapidPrivateKey != ""
}

// StaticCacheName is the cache partition holding the precached app shell.
// Rotating CACHEVERSION is how old partitions get purged, there is no
// per-entry expiry.
func (config *Config) StaticCacheName() string {
	return fmt.Sprintf("dating-app-static-%s", config.CacheVersion)
}

// DynamicCacheName is the cache partition receiving responses cached
// opportunistically at fetch time.
func (config *Config) DynamicCacheName() string {
	return fmt.Sprintf("dating-app-dynamic-%s", config.CacheVersion)
}
