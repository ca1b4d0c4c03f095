//go:build integration

package integration_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const eventsCSV = `Kesinti Raporu
Rapor Tarihi;15.03.2024
Kesinti No;Kademe;Şebeke Unsuru;Kesinti Başlama Zamanı;Kesinti/Kademe Bitiş Zamanı;Tablo-1 IN-OUT FLG;Scada Kesintisi;Son Çağrı Zamanı;CBS TM No;Kaynağa Göre;Toplam Çağrı Sayısı
100;1;E1;15.03.2024 10:00:00;15.03.2024 11:00:00;IN;X;15.03.2024 09:45:00;;Dağıtım-OG;3
101;1;E1;15.03.2024 11:10:00;15.03.2024 12:00:00;OUT;;;;Dağıtım-OG;0
200;1;E2;15.03.2024 08:00:00;15.03.2024 12:00:00;IN;;;;Dağıtım-OG;1
201;1;E2;15.03.2024 09:00:00;15.03.2024 10:00:00;IN;;;;Dağıtım-OG;1
300;1;E3;15.03.2024 08:00:00;15.03.2024 09:00:00;IN;;;;Dağıtım-OG;0
`

// startKafka runs a single-node broker for the duration of the test.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("outage-chain-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     3,
		ReplicationFactor: 1,
	}))
}

func newReader(broker, topic string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       topic,
		GroupID:     "test-" + topic + "-" + strconv.FormatInt(time.Now().UnixNano(), 10),
		StartOffset: kafkago.FirstOffset,
		MaxWait:     500 * time.Millisecond,
	})
}

// readN reads exactly n messages or fails the test.
func readN(ctx context.Context, t *testing.T, r *kafkago.Reader, n int) []kafkago.Message {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msgs := make([]kafkago.Message, 0, n)
	for len(msgs) < n {
		msg, err := r.ReadMessage(readCtx)
		require.NoError(t, err, "read from sink topic")
		msgs = append(msgs, msg)
	}
	return msgs
}

func headers(msg kafkago.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outages.csv")
	require.NoError(t, os.WriteFile(path, []byte(eventsCSV), 0o600))
	return path
}
