package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Conf is the process-wide configuration, loaded once at init.
var Conf *Config

func init() {
	conf, err := LoadConfig()
	if err != nil {
		log.Fatalf("%+v", errors.Wrap(err, "loading config"))
	}
	Conf = conf
}

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string
		WorkDir          string

		Server   ServerConfig
		Client   ClientConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string // expvar & pprof; empty disables the debug server
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		SeedMockData              bool
		SeedOperator              string // "username:password" of the operator seeded with the mock data
		SeedInstitution           Institution
	}

	ClientConfig struct {
		APIBaseURL  string
		RefreshPath string
		LoginPath   string
		LogoutPath  string
		LoginRoute  string
		SessionFile string
		Timeout     time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Enabled reports whether a Postgres database is configured; the API falls back to the in-memory store otherwise.
func (c DatabaseConfig) Enabled() bool {
	return c.Name != ""
}

// LoadConfig reads the configuration from the environment, after loading `config/.env.<env>` if it exists.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Masomo")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail", "Masomo <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("debugHost", "localhost:4000")
	v.SetDefault("jwtExpirationDelta", 15*time.Minute)
	v.SetDefault("jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("seedMockData", true)
	v.SetDefault("seedOperator", "masomo_admin:Kinshasa#2024")
	v.SetDefault("seedInstitutionCode", "CSK-01")
	v.SetDefault("seedInstitutionName", "Complexe Scolaire Kinshasa")
	v.SetDefault("seedInstitutionEmail", "info@csk.cd")

	v.SetDefault("apiBaseURL", "http://localhost:8000")
	v.SetDefault("refreshPath", "/v1/auth/refresh")
	v.SetDefault("loginPath", "/v1/auth/login")
	v.SetDefault("logoutPath", "/v1/auth/logout")
	v.SetDefault("loginRoute", "/login")
	v.SetDefault("sessionFile", "")
	v.SetDefault("clientTimeout", 30*time.Second)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "")
	v.SetDefault("dbUser", "")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", false)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)

	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "os.Stat(%s)", dotEnvPath)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}

	sessionFile := v.GetString("sessionFile")
	if sessionFile == "" {
		sessionFile = defaultSessionFile(v.GetString("appName"))
	}

	conf := &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		Build:            v.GetString("build"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		WorkDir:          wd,
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("debugHost"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			SeedMockData:              v.GetBool("seedMockData"),
			SeedOperator:              v.GetString("seedOperator"),
			SeedInstitution: Institution{
				Code:  v.GetString("seedInstitutionCode"),
				Name:  v.GetString("seedInstitutionName"),
				Email: v.GetString("seedInstitutionEmail"),
			},
		},
		Client: ClientConfig{
			APIBaseURL:  v.GetString("apiBaseURL"),
			RefreshPath: v.GetString("refreshPath"),
			LoginPath:   v.GetString("loginPath"),
			LogoutPath:  v.GetString("logoutPath"),
			LoginRoute:  v.GetString("loginRoute"),
			SessionFile: sessionFile,
			Timeout:     v.GetDuration("clientTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
	}
	return conf, nil
}

func defaultSessionFile(appName string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, strings.ToLower(appName), "session.json")
}
