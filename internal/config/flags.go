package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-d database DSN
//	-c/-config json file path with configs
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-token-duration token duration (e.g., "12h", "30m")
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-pull-page-size max records returned by a single pull
//	-server-url agent: base URL of the sync server
//	-sqlite-path agent: local database file path
//	-sync-interval agent: background sync period (e.g., "5m")
//	-login agent: staff login
//	-password agent: staff password
//	-device-id agent: stable device identifier
//	-device-label agent: human-readable device name
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var databaseDSN string
	var jsonConfigPath string
	var tokenSignKey string
	var tokenIssuer string
	var tokenDuration time.Duration
	var requestTimeout time.Duration
	var pullPageSize int
	var agentServerURL string
	var sqlitePath string
	var syncInterval time.Duration
	var agentLogin string
	var agentPassword string
	var agentDeviceID string
	var agentDeviceLabel string

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&tokenDuration, "token-duration", 0, "Token duration (e.g., 12h, 30m)")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.IntVar(&pullPageSize, "pull-page-size", 0, "Max records per pull response")
	flag.StringVar(&agentServerURL, "server-url", "", "Sync server base URL (agent)")
	flag.StringVar(&sqlitePath, "sqlite-path", "", "Local SQLite database path (agent)")
	flag.DurationVar(&syncInterval, "sync-interval", 0, "Background sync period (agent)")
	flag.StringVar(&agentLogin, "login", "", "Staff login (agent)")
	flag.StringVar(&agentPassword, "password", "", "Staff password (agent)")
	flag.StringVar(&agentDeviceID, "device-id", "", "Stable device identifier (agent)")
	flag.StringVar(&agentDeviceLabel, "device-label", "", "Human-readable device name (agent)")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			TokenSignKey:  tokenSignKey,
			TokenIssuer:   tokenIssuer,
			TokenDuration: tokenDuration,
		},
		Storage: Storage{
			DB: DB{
				DSN: databaseDSN,
			},
			SQLite: SQLite{
				Path: sqlitePath,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Sync: Sync{
			MaxRecordsPerPull: pullPageSize,
		},
		Agent: Agent{
			ServerURL:    agentServerURL,
			SyncInterval: syncInterval,
			Login:        agentLogin,
			Password:     agentPassword,
			DeviceID:     agentDeviceID,
			DeviceLabel:  agentDeviceLabel,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" && host != "" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
