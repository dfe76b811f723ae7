// Package mqtt mirrors the dashboard onto an MQTT broker: the sensor reading,
// the detection flags and the access log size are published from the bus, and
// detection flags can be set through command topics.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"pimonitor"
	"pimonitor/internal/bus"
	"pimonitor/internal/config"
	"pimonitor/internal/logger"
	"pimonitor/internal/service"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos            = 1
	connectTimeout = 10 * time.Second
	commandTimeout = 10 * time.Second
	disconnectMS   = 1000
	eventBuffer    = 128

	payloadOnline  = "online"
	payloadOffline = "offline"
	payloadOn      = "ON"
	payloadOff     = "OFF"
)

var errBadPayload = errors.New("payload must be ON or OFF")

// Publisher sends dashboard state to an MQTT broker.
type Publisher interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// StubPublisher is used when MQTT is disabled.
type StubPublisher struct {
	log *logger.Logger
}

func NewStubPublisher(log *logger.Logger) *StubPublisher {
	if log == nil {
		log = logger.Nop()
	}
	return &StubPublisher{log: log}
}

func (s *StubPublisher) Start(_ context.Context) error {
	s.log.Infow("mqtt_disabled")
	return nil
}

func (s *StubPublisher) Stop(_ context.Context) error { return nil }

var _ Publisher = (*StubPublisher)(nil)

// Dashboard is the part of the running dashboard the publisher needs.
// *service.Dashboard implements it.
type Dashboard interface {
	Snapshot() service.DashboardState
	Subscribe(buffer int) (<-chan bus.Event, func())
	ToggleDetection(ctx context.Context, key pimonitor.DetectionKey) (pimonitor.DetectionStatus, error)
	JoinViewer() string
	LeaveViewer(id string)
}

// brokerClient is the subset of pahomqtt.Client in use.
type brokerClient interface {
	Connect() pahomqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Subscribe(topic string, qos byte, callback pahomqtt.MessageHandler) pahomqtt.Token
}

func newPahoClient(opts *pahomqtt.ClientOptions) brokerClient {
	return pahomqtt.NewClient(opts)
}

var _ Publisher = (*BrokerPublisher)(nil)

// BrokerPublisher connects to a broker with paho and keeps it in sync with
// the dashboard.
type BrokerPublisher struct {
	cfg  config.MQTTConfig
	dash Dashboard
	log  *logger.Logger

	newClient func(*pahomqtt.ClientOptions) brokerClient
	client    brokerClient

	unsub    func()
	viewer   string
	stopC    chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewBrokerPublisher(cfg config.MQTTConfig, dash Dashboard, log *logger.Logger) *BrokerPublisher {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "pimonitor"
	}
	return &BrokerPublisher{
		cfg:       cfg,
		dash:      dash,
		log:       log.Named("mqtt"),
		newClient: newPahoClient,
		stopC:     make(chan struct{}),
	}
}

// Start connects, subscribes to the command topics on every (re)connect and
// forwards bus events. A broker that is down at startup is retried in the
// background.
func (p *BrokerPublisher) Start(_ context.Context) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(p.cfg.Broker).
		SetClientID(p.cfg.ClientID).
		SetUsername(p.cfg.Username).
		SetPassword(p.cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.topic("status"), payloadOffline, qos, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			p.log.Infow("mqtt_connected", "broker", p.cfg.Broker)
			p.onConnect()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			p.log.Warnw("mqtt_connection_lost", "err", err)
		})

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warnw("mqtt_connect_pending", "broker", p.cfg.Broker)
	} else if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	events, unsub := p.dash.Subscribe(eventBuffer)
	p.unsub = unsub
	// the mirror needs live readings even with no browser open
	p.viewer = p.dash.JoinViewer()

	p.wg.Add(1)
	go p.eventLoop(events)

	p.log.Infow("mqtt_started", "broker", p.cfg.Broker, "prefix", p.cfg.TopicPrefix)
	return nil
}

// Stop publishes offline and disconnects.
func (p *BrokerPublisher) Stop(_ context.Context) error {
	p.stopOnce.Do(func() {
		close(p.stopC)
		if p.viewer != "" {
			p.dash.LeaveViewer(p.viewer)
		}
		if p.unsub != nil {
			p.unsub()
		}
		p.wg.Wait()

		if p.client != nil && p.client.IsConnected() {
			p.publish(p.topic("status"), payloadOffline, true)
			p.client.Disconnect(disconnectMS)
		}
		p.log.Infow("mqtt_stopped")
	})
	return nil
}

func (p *BrokerPublisher) onConnect() {
	p.publish(p.topic("status"), payloadOnline, true)

	filter := p.topic("detection/+/set")
	token := p.client.Subscribe(filter, qos, p.handleCommand)
	if token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			p.log.Errorw("mqtt_subscribe_failed", "topic", filter, "err", err)
		}
	}

	p.publishFullState()
}

func (p *BrokerPublisher) publishFullState() {
	st := p.dash.Snapshot()
	p.publishReading(st.Reading)
	if st.Detection.Loaded {
		p.publishDetection(st.Detection.Status)
	}
	p.publishAccessLogCount(st.AccessLogs)
}

func (p *BrokerPublisher) eventLoop(ch <-chan bus.Event) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopC:
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			p.handleEvent(evt)
		}
	}
}

func (p *BrokerPublisher) handleEvent(evt bus.Event) {
	switch evt.Type {
	case bus.EventReading:
		st, ok := evt.Data.(service.ReadingState)
		if !ok {
			p.log.Warnw("mqtt_unexpected_event_data", "event_type", evt.Type)
			return
		}
		p.publishReading(st)

	case bus.EventDetection:
		st, ok := evt.Data.(service.DetectionState)
		if !ok {
			p.log.Warnw("mqtt_unexpected_event_data", "event_type", evt.Type)
			return
		}
		// optimistic in-flight states are not published
		if st.Toggling || !st.Loaded {
			return
		}
		p.publishDetection(st.Status)

	case bus.EventAccessLogs:
		st, ok := evt.Data.(service.AccessLogState)
		if !ok {
			p.log.Warnw("mqtt_unexpected_event_data", "event_type", evt.Type)
			return
		}
		p.publishAccessLogCount(st)
	}
}

func (p *BrokerPublisher) publishReading(st service.ReadingState) {
	if st.Reading == nil || st.Loading {
		return
	}
	data, err := json.Marshal(st.Reading)
	if err != nil {
		p.log.Errorw("mqtt_marshal_failed", "topic", "reading", "err", err)
		return
	}
	p.publish(p.topic("reading"), string(data), true)
}

func (p *BrokerPublisher) publishDetection(st pimonitor.DetectionStatus) {
	data, err := json.Marshal(st)
	if err != nil {
		p.log.Errorw("mqtt_marshal_failed", "topic", "detection", "err", err)
		return
	}
	p.publish(p.topic("detection"), string(data), true)
	for _, key := range []pimonitor.DetectionKey{pimonitor.DetectionFaces, pimonitor.DetectionObjects} {
		p.publish(p.topic("detection/"+string(key)+"/state"), boolToOnOff(st.Get(key)), true)
	}
}

func (p *BrokerPublisher) publishAccessLogCount(st service.AccessLogState) {
	if st.Loading {
		return
	}
	p.publish(p.topic("access_logs/count"), strconv.Itoa(len(st.Entries)), true)
}

// handleCommand applies "<prefix>/detection/<key>/set" with payload ON or OFF.
// The backend only offers a toggle, so it is called only when the flag differs.
func (p *BrokerPublisher) handleCommand(_ pahomqtt.Client, msg pahomqtt.Message) {
	key, ok := parseCommandTopic(p.cfg.TopicPrefix, msg.Topic())
	if !ok {
		p.log.Warnw("mqtt_unknown_command_topic", "topic", msg.Topic())
		return
	}
	want, err := parseOnOff(msg.Payload())
	if err != nil {
		p.log.Warnw("mqtt_bad_command_payload", "topic", msg.Topic(), "payload", string(msg.Payload()), "err", err)
		return
	}

	current := p.dash.Snapshot().Detection.Status.Get(key)
	if current == want {
		p.log.Debugw("mqtt_command_noop", "key", key, "value", want)
		return
	}

	p.log.Infow("mqtt_command", "key", key, "value", want)
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	if _, err := p.dash.ToggleDetection(ctx, key); err != nil {
		p.log.Errorw("mqtt_toggle_failed", "key", key, "err", err)
	}
}

// topic builds a full topic path: {prefix}/{suffix}.
func (p *BrokerPublisher) topic(suffix string) string {
	return p.cfg.TopicPrefix + "/" + suffix
}

// publish is a convenience wrapper that publishes a message and logs errors.
func (p *BrokerPublisher) publish(topic, payload string, retained bool) {
	if p.client == nil || !p.client.IsConnected() {
		return
	}
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warnw("mqtt_publish_timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		p.log.Errorw("mqtt_publish_failed", "topic", topic, "err", err)
	}
}

// parseCommandTopic extracts the detection key from "<prefix>/detection/<key>/set".
func parseCommandTopic(prefix, topic string) (pimonitor.DetectionKey, bool) {
	rest, ok := strings.CutPrefix(topic, prefix+"/detection/")
	if !ok {
		return "", false
	}
	name, ok := strings.CutSuffix(rest, "/set")
	if !ok {
		return "", false
	}
	key, err := pimonitor.ParseDetectionKey(name)
	if err != nil {
		return "", false
	}
	return key, true
}

func parseOnOff(payload []byte) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case payloadOn:
		return true, nil
	case payloadOff:
		return false, nil
	default:
		return false, errBadPayload
	}
}

func boolToOnOff(b bool) string {
	if b {
		return payloadOn
	}
	return payloadOff
}
