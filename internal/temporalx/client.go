package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	sdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/yungbote/campus-backend/internal/platform/config"
	"github.com/yungbote/campus-backend/internal/platform/logger"
)

const namespaceEnsureTimeout = 10 * time.Second

// NewClient dials the deferred-work cluster. A cluster that is still starting
// is retried with backoff for up to DialMaxWait; ctx cancels the wait. An
// empty address returns a nil client.
func NewClient(ctx context.Context, cfg config.TemporalConfig, log *logger.Logger) (sdkclient.Client, error) {
	if log == nil {
		log = logger.NewNop()
	}
	if strings.TrimSpace(cfg.Address) == "" {
		log.Warn("TEMPORAL_ADDRESS not set; Temporal disabled")
		return nil, nil
	}
	opts, err := clientOptions(cfg, log)
	if err != nil {
		return nil, err
	}
	opts.Namespace = cfg.Namespace

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	var c sdkclient.Client
	deadline := time.Now().Add(cfg.DialMaxWait)
	err = retry(ctx, deadline, cfg.DialBackoff, cfg.DialBackoffMax, func(attempt int) (bool, error) {
		dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
		defer cancel()
		var dialErr error
		c, dialErr = sdkclient.DialContext(dialCtx, opts)
		if dialErr != nil {
			log.Warn("Temporal not reachable", "address", cfg.Address, "attempt", attempt, "error", dialErr)
			return false, dialErr
		}
		return true, nil
	})
	if err != nil {
		return nil, fmt.Errorf("temporal dial %s/%s: %w", cfg.Address, cfg.Namespace, err)
	}
	if cfg.AutoRegister {
		if err := EnsureNamespace(ctx, cfg, log); err != nil {
			c.Close()
			return nil, err
		}
	}
	log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	return c, nil
}

// EnsureNamespace registers the configured namespace when the cluster does not
// know it yet. Used for local and self-hosted clusters.
func EnsureNamespace(ctx context.Context, cfg config.TemporalConfig, log *logger.Logger) error {
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, namespaceEnsureTimeout)
	defer cancel()

	// the namespace client sends no namespace header, so it can create one that does not exist yet
	opts, err := clientOptions(cfg, log)
	if err != nil {
		return err
	}
	ns, err := sdkclient.NewNamespaceClient(opts)
	if err != nil {
		return fmt.Errorf("temporal namespace client: %w", err)
	}
	defer ns.Close()

	retention := cfg.RetentionDays
	if retention < 1 || retention > 365 {
		retention = 7
	}
	err = retry(ctx, time.Time{}, 250*time.Millisecond, 5*time.Second, func(int) (bool, error) {
		_, err := ns.Describe(ctx, namespace)
		var missing *serviceerror.NamespaceNotFound
		if errors.As(err, &missing) {
			err = ns.Register(ctx, &workflowservice.RegisterNamespaceRequest{
				Namespace:                        namespace,
				Description:                      "campus deferred work",
				WorkflowExecutionRetentionPeriod: durationpb.New(time.Duration(retention) * 24 * time.Hour),
			})
			var exists *serviceerror.NamespaceAlreadyExists
			if err == nil || errors.As(err, &exists) {
				log.Info("Registered Temporal namespace", "namespace", namespace, "retention_days", retention)
				return true, nil
			}
		}
		if err == nil {
			return true, nil
		}
		if !isRetryableRPC(err) {
			return true, err
		}
		return false, err
	})
	if err != nil {
		return fmt.Errorf("temporal namespace %s: %w", namespace, err)
	}
	return nil
}

// retry calls fn until it reports done, ctx ends, or deadline passes. A zero
// deadline means ctx alone bounds the loop. The last error is returned.
func retry(ctx context.Context, deadline time.Time, base, max time.Duration, fn func(attempt int) (bool, error)) error {
	for attempt := 1; ; attempt++ {
		done, err := fn(attempt)
		if done {
			return err
		}
		wait := Backoff(base, max, attempt)
		if !deadline.IsZero() && time.Now().Add(wait).After(deadline) {
			return err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(err, ctx.Err())
		case <-t.C:
		}
	}
}

func clientOptions(cfg config.TemporalConfig, log *logger.Logger) (sdkclient.Options, error) {
	opts := sdkclient.Options{HostPort: cfg.Address, Logger: log}
	if cfg.ClientCertPath == "" && cfg.ClientKeyPath == "" && cfg.ClientCAPath == "" {
		return opts, nil
	}
	tlsCfg, err := loadTLSConfig(cfg)
	if err != nil {
		return opts, err
	}
	opts.ConnectionOptions.TLS = tlsCfg
	return opts, nil
}

func loadTLSConfig(cfg config.TemporalConfig) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, errors.New("temporal tls: TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH must both be set")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: %w", err)
	}
	tlsCfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	if cfg.ClientCAPath == "" {
		return tlsCfg, nil
	}
	pem, err := os.ReadFile(cfg.ClientCAPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("temporal tls: no certificates in %s", cfg.ClientCAPath)
	}
	tlsCfg.RootCAs = pool
	return tlsCfg, nil
}

// Backoff doubles base per attempt, capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	return d
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}
