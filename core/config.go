package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	BlobConfig struct {
		Driver       string // "local" | "oss"
		Dir          string
		OSSEndpoint  string
		OSSAccessKey string
		OSSSecretKey string
		OSSBucket    string
		URLExpiry    time.Duration
	}

	SchedulerConfig struct {
		PaymentDigest    string // cron spec, empty disables the job
		NotificationTrim string
	}

	Config struct {
		Env                       string // DEV (local; default), TEST, QA, PROD
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Build                     string
		SecretKey                 string
		FrontendBaseURL           string
		WorkDir                   string
		RollbarToken              string
		SendgridApiKey            string
		PasswordResetTimeoutDelta time.Duration
		NotificationsMaxPerUser   int
		SchoolDays                []time.Weekday

		Server    ServerConfig
		Database  DatabaseConfig
		Redis     RedisConfig
		Blob      BlobConfig
		Scheduler SchedulerConfig

		defaultFromEmail string
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

func (c *Config) SetDefaultFromEmail(addr string) { c.defaultFromEmail = addr }

func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration from viper defaults, the optional `config/.env.<env>` file
// and the environment, in that order of precedence.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Muallim")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "k2v$9!q8@muallim-dev-only#x4w&z7)e1+r5^t3")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	conf.SetDefault("notificationsMaxPerUser", 200)
	conf.SetDefault("attendanceSchoolDays", "saturday,sunday")

	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("databaseEngine", "postgres")
	conf.SetDefault("databaseHost", "localhost")
	conf.SetDefault("databasePort", "5432")
	conf.SetDefault("databaseName", "muallim")
	conf.SetDefault("databaseUser", "muallim")
	conf.SetDefault("databasePassword", "muallim")
	conf.SetDefault("databaseAdminUser", "postgres")
	conf.SetDefault("databaseAdminPassword", "postgres")
	conf.SetDefault("databaseDisableTLS", true)

	conf.SetDefault("redisAddr", "localhost:6379")
	conf.SetDefault("redisPassword", "")
	conf.SetDefault("redisDB", 0)

	conf.SetDefault("blobDriver", "local")
	conf.SetDefault("blobDir", "uploads")
	conf.SetDefault("blobOssEndpoint", "")
	conf.SetDefault("blobOssAccessKey", "")
	conf.SetDefault("blobOssSecretKey", "")
	conf.SetDefault("blobOssBucket", "")
	conf.SetDefault("blobUrlExpiry", 15*time.Minute)

	conf.SetDefault("schedulerPaymentDigest", "0 8 * * MON")
	conf.SetDefault("schedulerNotificationTrim", "30 3 * * *")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
		conf.SetDefault("debug", false)
		conf.SetDefault("databaseName", "muallim_test")
	}
	conf.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	c := &Config{
		Env:                       env,
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		AppName:                   conf.GetString("appName"),
		Build:                     conf.GetString("build"),
		SecretKey:                 conf.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimSuffix(conf.GetString("frontendBaseURL"), "/"),
		WorkDir:                   wd,
		RollbarToken:              conf.GetString("rollbarToken"),
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		NotificationsMaxPerUser:   conf.GetInt("notificationsMaxPerUser"),
		SchoolDays:                parseWeekdays(conf.GetString("attendanceSchoolDays")),
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("databaseEngine"),
			Host:          conf.GetString("databaseHost"),
			Port:          conf.GetString("databasePort"),
			Name:          conf.GetString("databaseName"),
			User:          conf.GetString("databaseUser"),
			Password:      conf.GetString("databasePassword"),
			AdminUser:     conf.GetString("databaseAdminUser"),
			AdminPassword: conf.GetString("databaseAdminPassword"),
			DisableTLS:    conf.GetBool("databaseDisableTLS"),
		},
		Redis: RedisConfig{
			Addr:     conf.GetString("redisAddr"),
			Password: conf.GetString("redisPassword"),
			DB:       conf.GetInt("redisDB"),
		},
		Blob: BlobConfig{
			Driver:       conf.GetString("blobDriver"),
			Dir:          conf.GetString("blobDir"),
			OSSEndpoint:  conf.GetString("blobOssEndpoint"),
			OSSAccessKey: conf.GetString("blobOssAccessKey"),
			OSSSecretKey: conf.GetString("blobOssSecretKey"),
			OSSBucket:    conf.GetString("blobOssBucket"),
			URLExpiry:    conf.GetDuration("blobUrlExpiry"),
		},
		Scheduler: SchedulerConfig{
			PaymentDigest:    conf.GetString("schedulerPaymentDigest"),
			NotificationTrim: conf.GetString("schedulerNotificationTrim"),
		},
		defaultFromEmail: conf.GetString("defaultFromEmail"),
	}
	if !filepath.IsAbs(c.Blob.Dir) {
		c.Blob.Dir = filepath.Join(wd, c.Blob.Dir)
	}
	return c
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(s string) []time.Weekday {
	var days []time.Weekday
	for _, name := range strings.Split(s, ",") {
		name = CleanString(name, true /* lower */)
		if name == "" {
			continue
		}
		day, ok := weekdays[name]
		if !ok {
			log.Fatal(fmt.Sprintf("config: unknown weekday %q", name))
		}
		days = append(days, day)
	}
	return days
}
