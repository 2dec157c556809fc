package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	mqttv2 "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
	"github.com/nergy-se/heatcontrol/pkg/plan"
	"github.com/nergy-se/heatcontrol/pkg/state"
	"github.com/sirupsen/logrus"
)

// Broker is an embedded MQTT broker where the controller publishes retained
// messages about the current level, the plan and its state.
type Broker struct {
	server *mqttv2.Server
	prefix string
}

// Start starts the broker. If address is empty no listener is opened and
// only inline subscribers see the messages. The broker is closed when ctx is done.
func Start(ctx context.Context, wg *sync.WaitGroup, address, prefix string) (*Broker, error) {
	server := mqttv2.New(&mqttv2.Options{
		InlineClient: true,
	})

	// Allow all connections.
	_ = server.AddHook(new(auth.AllowHook), nil)

	if address != "" {
		tcp := listeners.NewTCP(listeners.Config{ID: "t1", Address: address})
		err := server.AddListener(tcp)
		if err != nil {
			return nil, fmt.Errorf("error adding mqtt listener %s: %w", address, err)
		}
	}

	err := server.Serve()
	if err != nil {
		return nil, err
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()
		err := server.Close()
		if err != nil {
			logrus.Errorf("error closing mqtt broker: %s", err)
		}
	}()

	return &Broker{server: server, prefix: prefix}, nil
}

func (b *Broker) Topic(name string) string {
	return b.prefix + "/" + name
}

func (b *Broker) PublishState(s state.State) error {
	if err := b.publish("level", []byte(s.Level.String())); err != nil {
		return err
	}
	return b.publishJSON("state", s)
}

func (b *Broker) PublishPlan(a *plan.Allocation) error {
	type planMessage struct {
		Date  string      `json:"date"`
		Slots []plan.Slot `json:"slots"`
	}
	return b.publishJSON("plan", planMessage{
		Date:  a.Date().Format("2006-01-02"),
		Slots: a.Schedule(),
	})
}

// Retained returns the retained payload of topic name.
func (b *Broker) Retained(name string) ([]byte, bool) {
	msgs := b.server.Topics.Messages(b.Topic(name))
	if len(msgs) == 0 {
		return nil, false
	}
	return msgs[0].Payload, true
}

func (b *Broker) publishJSON(name string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.publish(name, payload)
}

func (b *Broker) publish(name string, payload []byte) error {
	err := b.server.Publish(b.Topic(name), payload, true, 0)
	if err != nil {
		return fmt.Errorf("error publishing %s: %w", b.Topic(name), err)
	}
	return nil
}
