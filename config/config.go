package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/mbolis/form-flow/pager"
)

type Config struct {
	Addr          string
	DBUrl         string
	TokenSecret   string
	TokenTTL      time.Duration
	PageSize      int
	EscapeAnswers bool
	Debug         bool
}

// ParseFlags reads the configuration from args. FORMFLOW_* environment
// variables are used as defaults. ParseFlags never changes the environment.
func ParseFlags(args []string) (cfg Config, err error) {
	fs := flag.NewFlagSet("form-flow", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", env("HOST", "0.0.0.0"), "listen host name")
	var port uint
	fs.UintVar(&port, "port", envUint("PORT", 80), "listen port number")
	fs.StringVar(&cfg.DBUrl, "db-url", env("DB_URL", "formflow.sqlite"), "path to SQLite3 DB file")
	fs.StringVar(&cfg.TokenSecret, "token-secret", env("TOKEN_SECRET", ""), "secret key for token encryption and decryption")
	var ttl uint
	fs.UintVar(&ttl, "token-ttl", envUint("TOKEN_TTL", 3600), "session token TTL in seconds")
	var pageSize uint
	fs.UintVar(&pageSize, "page-size", envUint("PAGE_SIZE", pager.DefaultSize), "surveys per catalog page")
	fs.BoolVar(&cfg.EscapeAnswers, "escape-answers", envBool("ESCAPE_ANSWERS"), "backslash-escape delimiters inside text answers")
	fs.BoolVar(&cfg.Debug, "debug", envBool("DEBUG"), "log at DEBUG level")

	if err = fs.Parse(args); err != nil {
		return
	}

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.PageSize = int(pageSize)

	switch {
	case cfg.TokenSecret == "":
		err = errors.New("missing parameter -token-secret")
	case cfg.PageSize < 1:
		err = errors.New("parameter -page-size must be positive")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func env(key, def string) string {
	if v, ok := os.LookupEnv("FORMFLOW_" + key); ok {
		return v
	}
	return def
}

func envUint(key string, def uint) uint {
	v, err := strconv.ParseUint(env(key, ""), 10, 0)
	if err != nil {
		return def
	}
	return uint(v)
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(env(key, ""))
	return v
}
