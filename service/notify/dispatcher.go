package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/solsweep/service/metrics"
	"github.com/brojonat/solsweep/service/sweep"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Dispatcher pushes a human-readable wallet alert to the operator channel.
// Dispatch is best-effort: callers fire it off the response path and only
// log failures.
type Dispatcher interface {
	// Dispatch formats and publishes an alert for the snapshot.
	Dispatch(ctx context.Context, snapshot *sweep.WalletSnapshot) error

	// Close closes the connection to the messaging channel.
	Close() error
}

const (
	// StreamName is the name of the JetStream stream for operator alerts.
	StreamName = "ALERTS"

	// StreamSubjects is the subject pattern for the stream.
	StreamSubjects = "alerts.*"

	// StreamRetention is how long alerts are retained.
	StreamRetention = 7 * 24 * time.Hour
)

// NATSDispatcher publishes wallet alerts to NATS JetStream.
type NATSDispatcher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
	network string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewNATSDispatcher connects to NATS and ensures the alert stream exists.
func NewNATSDispatcher(natsURL, subject, network string, m *metrics.Metrics, logger *slog.Logger) (*NATSDispatcher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("solsweep-alerts"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1), // Unlimited reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	d := &NATSDispatcher{
		nc:      nc,
		js:      js,
		subject: subject,
		network: network,
		metrics: m,
		logger:  logger,
	}

	if err := d.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream exists: %w", err)
	}

	logger.Info("NATS alert dispatcher initialized",
		"url", natsURL,
		"stream", StreamName,
		"subject", subject,
	)

	return d, nil
}

// ensureStream creates the JetStream stream if it doesn't exist.
func (d *NATSDispatcher) ensureStream() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := d.js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	d.logger.Info("creating JetStream stream", "stream", StreamName)

	_, err := d.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Operator alerts for inspected wallets",
		Subjects:    []string{StreamSubjects},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// Dispatch formats the snapshot and publishes it to the alert subject.
func (d *NATSDispatcher) Dispatch(ctx context.Context, snapshot *sweep.WalletSnapshot) error {
	msg := FormatSnapshot(snapshot, d.network)

	start := time.Now()
	_, err := d.js.Publish(ctx, d.subject, []byte(msg))
	if d.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		d.metrics.RecordNATSPublish(d.subject, status, time.Since(start).Seconds())
	}
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	d.logger.Debug("published wallet alert",
		"subject", d.subject,
		"address", snapshot.Address.String(),
	)
	return nil
}

// Close closes the connection to NATS.
func (d *NATSDispatcher) Close() error {
	if d.nc != nil {
		d.nc.Close()
		d.logger.Info("NATS alert dispatcher closed")
	}
	return nil
}

// FormatSnapshot renders the operator alert with light markup: address in
// short and full form, an explorer link, the native balance, and one line
// per token holding.
func FormatSnapshot(snapshot *sweep.WalletSnapshot, network string) string {
	address := snapshot.Address.String()

	explorer := fmt.Sprintf("https://solscan.io/account/%s", address)
	if network == "devnet" {
		explorer += "?cluster=devnet"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Wallet report (%s)*\n", network)
	fmt.Fprintf(&b, "Address: `%s` (%s)\n", shortAddress(address), explorer)
	fmt.Fprintf(&b, "SOL: %.9f\n", snapshot.NativeSOL())

	if len(snapshot.Holdings) == 0 {
		b.WriteString("No token holdings.\n")
		return b.String()
	}

	b.WriteString("Tokens:\n")
	for _, h := range snapshot.Holdings {
		fmt.Fprintf(&b, "- %s %s (%s)\n", formatAmount(h.UIAmount()), h.Symbol, h.Name)
	}
	return b.String()
}

// formatAmount trims trailing zeros from a display amount.
func formatAmount(v float64) string {
	s := fmt.Sprintf("%.9f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// shortAddress renders an address as its first and last four characters.
func shortAddress(addr string) string {
	if len(addr) <= 8 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}
