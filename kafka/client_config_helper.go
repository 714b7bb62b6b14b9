package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl"
	"github.com/twmb/franz-go/pkg/sasl/kerberos"
	"github.com/twmb/franz-go/pkg/sasl/oauth"
	"github.com/twmb/franz-go/pkg/sasl/plain"
	"github.com/twmb/franz-go/pkg/sasl/scram"
	"github.com/youmark/pkcs8"
	"go.uber.org/zap"

	krbconfig "github.com/jcmturner/gokrb5/v8/config"
)

// NewKgoConfig creates the client options for franz-go. If TLS certificates or the kerberos configuration can't be
// read an error will be returned.
func NewKgoConfig(cfg Config, logger *zap.Logger, hooks kgo.Hook) ([]kgo.Opt, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.WithLogger(KgoZapLogger{logger: logger.Sugar()}),
	}
	if hooks != nil {
		opts = append(opts, kgo.WithHooks(hooks))
	}

	// Add Rack Awareness if configured
	if cfg.RackID != "" {
		opts = append(opts, kgo.Rack(cfg.RackID))
	}

	if cfg.SASL.Enabled {
		mechanism, err := saslMechanism(cfg.SASL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgo.SASL(mechanism))
	}

	if cfg.TLS.Enabled {
		tlsCfg, err := tlsConfig(cfg.TLS, logger)
		if err != nil {
			return nil, err
		}
		tlsDialer := &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: 10 * time.Second},
			Config:    tlsCfg,
		}
		opts = append(opts, kgo.Dialer(tlsDialer.DialContext))
	}

	return opts, nil
}

func saslMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case SASLMechanismPlain:
		return plain.Auth{
			User: cfg.Username,
			Pass: cfg.Password,
		}.AsMechanism(), nil
	case SASLMechanismScramSHA256:
		return scram.Auth{User: cfg.Username, Pass: cfg.Password}.AsSha256Mechanism(), nil
	case SASLMechanismScramSHA512:
		return scram.Auth{User: cfg.Username, Pass: cfg.Password}.AsSha512Mechanism(), nil
	case SASLMechanismGSSAPI:
		krbClient, err := kerberosClient(cfg.GSSAPI)
		if err != nil {
			return nil, err
		}
		return kerberos.Auth{
			Client:           krbClient,
			Service:          cfg.GSSAPI.ServiceName,
			PersistAfterAuth: true,
		}.AsMechanism(), nil
	case SASLMechanismOAuthBearer:
		oauthCfg := cfg.OAuthBearer
		return oauth.Oauth(func(ctx context.Context) (oauth.Auth, error) {
			token, err := oauthCfg.getToken(ctx)
			return oauth.Auth{
				Zid:   oauthCfg.ClientID,
				Token: token,
			}, err
		}), nil
	}

	return nil, fmt.Errorf("given sasl mechanism '%v' is invalid", cfg.Mechanism)
}

func kerberosClient(cfg SASLGSSAPIConfig) (*client.Client, error) {
	kerbCfg, err := krbconfig.Load(cfg.KerberosConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create kerberos config from specified config filepath: %w", err)
	}

	switch cfg.AuthType {
	case GSSAPIAuthTypeUser:
		return client.NewWithPassword(
			cfg.Username,
			cfg.Realm,
			cfg.Password,
			kerbCfg,
			client.DisablePAFXFAST(!cfg.EnableFast)), nil
	case GSSAPIAuthTypeKeytab:
		ktb, err := keytab.Load(cfg.KeyTabPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load keytab: %w", err)
		}
		return client.NewWithKeytab(
			cfg.Username,
			cfg.Realm,
			ktb,
			kerbCfg,
			client.DisablePAFXFAST(!cfg.EnableFast)), nil
	}

	return nil, fmt.Errorf("kafka.sasl.gssapi.authType must be one of %v or %v", GSSAPIAuthTypeUser, GSSAPIAuthTypeKeytab)
}

func tlsConfig(cfg TLSConfig, logger *zap.Logger) (*tls.Config, error) {
	var caCertPool *x509.CertPool
	if cfg.CaFilepath != "" || cfg.Ca != "" {
		ca, err := readPEM(cfg.CaFilepath, cfg.Ca)
		if err != nil {
			return nil, fmt.Errorf("failed to load ca cert: %w", err)
		}
		caCertPool = x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(ca) {
			logger.Warn("failed to append ca file to cert pool, is this a valid PEM format?")
		}
	}

	// Mutual TLS if a client certificate or key has been configured
	var certificates []tls.Certificate
	hasCert := cfg.CertFilepath != "" || cfg.Cert != ""
	hasKey := cfg.KeyFilepath != "" || cfg.Key != ""
	if hasCert || hasKey {
		cert, err := readPEM(cfg.CertFilepath, cfg.Cert)
		if err != nil {
			return nil, fmt.Errorf("failed to read TLS certificate: %w", err)
		}
		privateKey, err := readPEM(cfg.KeyFilepath, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to read TLS key: %w", err)
		}

		if cfg.Passphrase != "" {
			privateKey, err = decryptPrivateKey(privateKey, cfg.Passphrase, logger)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt private key: %w", err)
			}
		}

		tlsCert, err := tls.X509KeyPair(cert, privateKey)
		if err != nil {
			return nil, fmt.Errorf("cannot parse pem: %w", err)
		}
		certificates = []tls.Certificate{tlsCert}
	}

	return &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipTLSVerify,
		Certificates:       certificates,
		RootCAs:            caCertPool,
	}, nil
}

// readPEM returns the file contents if a path is given, the inline value otherwise
func readPEM(path string, inline string) ([]byte, error) {
	if path == "" {
		return []byte(inline), nil
	}
	return os.ReadFile(path)
}

// decryptPrivateKey decrypts a PEM encoded private key with the given passphrase. Keys that are not encrypted are
// returned unchanged.
func decryptPrivateKey(keyPEM []byte, passphrase string, logger *zap.Logger) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block containing private key")
	}

	if block.Type == "ENCRYPTED PRIVATE KEY" {
		key, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, []byte(passphrase))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt PKCS#8 private key: %w", err)
		}
		decrypted, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal decrypted PKCS#8 private key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: decrypted}), nil
	}

	if x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // Supporting legacy keys
		logger.Warn("using legacy PEM encryption for private key, this encryption method is insecure and deprecated. " +
			"Convert your key using: openssl pkcs8 -topk8 -v2 aes256 -in old_key.pem -out new_key.pem")

		decrypted, err := x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck // Supporting legacy keys
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt legacy PEM private key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: decrypted}), nil
	}

	return keyPEM, nil
}
