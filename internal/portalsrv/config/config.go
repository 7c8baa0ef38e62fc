package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	DBName   string `toml:"dbname"`
	SSLMode  string `toml:"sslmode"`
}

type ConfigParam struct {
	ServerPort      string   `toml:"server_port"`
	HandleCORS      bool     `toml:"handle_cors"`
	CORSOrigins     []string `toml:"cors_origins"`
	SessionSecret   string   `toml:"session_secret"`
	SessionValidity int      `toml:"session_validity_hours"`
	AdminAccessKey  string   `toml:"admin_access_key"`
	AdminEmails     []string `toml:"admin_emails"`
	DB              DBConfig `toml:"warehouse"`
}

var cfg *ConfigParam

func Config() *ConfigParam {
	return cfg
}

func LoadConfig(filename string) error {
	if filename == "" {
		cfg = &ConfigParam{
			ServerPort:      "8180",
			HandleCORS:      true,
			CORSOrigins:     []string{"http://localhost:3000"},
			SessionSecret:   "dev-session-secret",
			SessionValidity: 12,
			AdminAccessKey:  "dev-access-key",
			AdminEmails:     []string{"admin@localhost"},
			DB: DBConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "portal_api",
				DBName:  "lpdados",
				SSLMode: "disable",
			},
		}
		return nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	var cp ConfigParam
	if _, err := toml.Decode(string(content), &cp); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}
	if cp.SessionValidity <= 0 {
		cp.SessionValidity = 12
	}
	cfg = &cp
	return nil
}

// Dsn builds the warehouse connection string. The password may be supplied
// through PORTAL_WAREHOUSE_PASSWORD instead of the config file.
func (c *ConfigParam) Dsn() string {
	password := c.DB.Password
	if env := os.Getenv("PORTAL_WAREHOUSE_PASSWORD"); env != "" {
		password = env
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, password, c.DB.DBName, c.DB.SSLMode)
}

// IsAdminEmail reports whether email is on the admin allow-list. Matching is
// case-insensitive.
func (c *ConfigParam) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, allowed := range c.AdminEmails {
		if strings.ToLower(strings.TrimSpace(allowed)) == email {
			return true
		}
	}
	return false
}

func init() {
	if err := LoadConfig(""); err != nil {
		panic(err)
	}
}
