package uniqw

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultPort is used when a connection URL omits the port.
const DefaultPort = 6379

// Connection holds the backend parameters resolved from a connection URL.
// It is parsed once per process and treated as read-only afterwards.
type Connection struct {
	Host     string
	Port     int
	Username string
	Password string
	DB       int
	// TLS is true iff the URL scheme is rediss.
	TLS bool
}

// ParseConnection resolves a redis:// or rediss:// URL.
func ParseConnection(rawURL string) (Connection, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Connection{}, ErrMissingConnection
	}
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return Connection{}, fmt.Errorf("%w: %v", ErrInvalidConnection, err)
	}
	host, portStr, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return Connection{}, fmt.Errorf("%w: %v", ErrInvalidConnection, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		port = DefaultPort
	}
	return Connection{
		Host:     host,
		Port:     port,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
		TLS:      opts.TLSConfig != nil,
	}, nil
}

// Addr returns host:port.
func (c Connection) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Options returns go-redis client options for the connection.
func (c Connection) Options() *redis.Options {
	o := &redis.Options{
		Addr:     c.Addr(),
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
	}
	if c.TLS {
		o.TLSConfig = &tls.Config{ServerName: c.Host, MinVersion: tls.VersionTLS12}
	}
	return o
}

// String renders the connection as a URL with the credential redacted.
func (c Connection) String() string {
	u := url.URL{Scheme: "redis", Host: c.Addr(), Path: "/" + strconv.Itoa(c.DB)}
	if c.TLS {
		u.Scheme = "rediss"
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.Username, "xxxxx")
	} else if c.Username != "" {
		u.User = url.User(c.Username)
	}
	return u.String()
}
