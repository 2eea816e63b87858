// Package config loads the service's environment into a typed Config at
// startup (spec §2 Ambient stack).
package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr string
	DBDSN    string

	MT5Server     string
	MT5Login      string
	MT5Password   string
	MT5BridgePath string

	MessagingAccountSID string
	MessagingAuthToken  string
	MessagingFrom       string

	AdminAPIKey    string
	AdminJWTSecret string

	AllowNegativeMetal  bool
	BaseAmountPerVolume decimal.Decimal
	MinimumBalancePct   decimal.Decimal

	Symbol string
}

func Load() (Config, error) {
	var c Config
	var missing []string

	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	if c.DBDSN == "" {
		missing = append(missing, "DB_DSN")
	}
	c.MT5Server = os.Getenv("MT5_SERVER")
	if c.MT5Server == "" {
		missing = append(missing, "MT5_SERVER")
	}
	c.MT5Login = os.Getenv("MT5_LOGIN")
	if c.MT5Login == "" {
		missing = append(missing, "MT5_LOGIN")
	}
	c.MT5Password = os.Getenv("MT5_PASSWORD")
	if c.MT5Password == "" {
		missing = append(missing, "MT5_PASSWORD")
	}
	c.MT5BridgePath = os.Getenv("MT5_BRIDGE_PATH")
	if c.MT5BridgePath == "" {
		missing = append(missing, "MT5_BRIDGE_PATH")
	}
	c.MessagingAccountSID = os.Getenv("MESSAGING_ACCOUNT_SID")
	if c.MessagingAccountSID == "" {
		missing = append(missing, "MESSAGING_ACCOUNT_SID")
	}
	c.MessagingAuthToken = os.Getenv("MESSAGING_AUTH_TOKEN")
	if c.MessagingAuthToken == "" {
		missing = append(missing, "MESSAGING_AUTH_TOKEN")
	}
	c.MessagingFrom = os.Getenv("MESSAGING_FROM")
	if c.MessagingFrom == "" {
		missing = append(missing, "MESSAGING_FROM")
	}
	c.AdminAPIKey = os.Getenv("ADMIN_API_KEY")
	if c.AdminAPIKey == "" {
		missing = append(missing, "ADMIN_API_KEY")
	}
	c.AdminJWTSecret = os.Getenv("ADMIN_JWT_SECRET")
	if c.AdminJWTSecret == "" {
		missing = append(missing, "ADMIN_JWT_SECRET")
	}

	allowNegativeMetal := os.Getenv("ALLOW_NEGATIVE_METAL")
	if allowNegativeMetal == "" {
		c.AllowNegativeMetal = true
	} else {
		b, err := strconv.ParseBool(allowNegativeMetal)
		if err != nil {
			return c, errors.New("invalid ALLOW_NEGATIVE_METAL: " + err.Error())
		}
		c.AllowNegativeMetal = b
	}

	c.BaseAmountPerVolume = decimal.NewFromInt(50)
	if v := os.Getenv("BASE_AMOUNT_PER_VOLUME"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c, errors.New("invalid BASE_AMOUNT_PER_VOLUME: " + err.Error())
		}
		c.BaseAmountPerVolume = d
	}
	c.MinimumBalancePct = decimal.NewFromInt(20)
	if v := os.Getenv("MINIMUM_BALANCE_PCT"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c, errors.New("invalid MINIMUM_BALANCE_PCT: " + err.Error())
		}
		c.MinimumBalancePct = d
	}

	c.Symbol = os.Getenv("TRADING_SYMBOL")
	if c.Symbol == "" {
		c.Symbol = "XAUUSD"
	}

	if len(missing) > 0 {
		return c, errors.New("missing required env: " + join(missing))
	}
	return c, nil
}

func join(items []string) string {
	if len(items) == 0 {
		return ""
	}
	out := items[0]
	for i := 1; i < len(items); i++ {
		out += "," + items[i]
	}
	return out
}
