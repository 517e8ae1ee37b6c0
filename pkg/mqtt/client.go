// Package mqtt exposes the controller over an MQTT broker: state is published as
// retained JSON and commands arrive on <root>/cmd/... topics.
package mqtt

import (
	"encoding/json"
	"strings"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Client struct {
	topicRoot string
	opts      *paho.ClientOptions
	client    paho.Client
}

func NewClient(brokerURL string, clientID string, topicRoot string) *Client {
	opts := paho.NewClientOptions().AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetWill(topicRoot+"/online", "false", 0, true)
	return &Client{
		topicRoot: strings.TrimSuffix(topicRoot, "/"),
		opts:      opts,
	}
}

func (c *Client) Connect() error {
	c.client = paho.NewClient(c.opts)
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "connect error")
	}
	log.Info().Str("topic_root", c.topicRoot).Msg("Connected to MQTT broker")
	return c.Publish("online", true, true)
}

func (c *Client) Disconnect() {
	if c.client == nil {
		return
	}
	c.client.Disconnect(250)
}

func (c *Client) scope(topic string) (string, error) {
	if len(topic) == 0 {
		return "", errors.New("topic is empty")
	}
	if topic[0] == '/' {
		return "", errors.New("expected relative topic (cannot begin with slash)")
	}
	return c.topicRoot + "/" + topic, nil
}

// Publish sends payload as JSON on topicRoot/topic without waiting for the broker
func (c *Client) Publish(topic string, payload any, retained bool) error {
	if c.client == nil {
		return errors.New("client not connected")
	}
	scopedTopic, err := c.scope(topic)
	if err != nil {
		return err
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "unable to encode payload")
	}
	token := c.client.Publish(scopedTopic, 0, retained, payloadBytes)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Error().Err(err).Str("topic", scopedTopic).Msg("Publish failed")
		}
	}()
	return nil
}

// Subscribe registers handler for topicRoot/topic; handler sees topics relative to the root
func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	if c.client == nil {
		return errors.New("client not connected")
	}
	scopedTopic, err := c.scope(topic)
	if err != nil {
		return err
	}
	prefix := c.topicRoot + "/"
	token := c.client.Subscribe(scopedTopic, 1, func(_ paho.Client, msg paho.Message) {
		handler(strings.TrimPrefix(msg.Topic(), prefix), msg.Payload())
	})
	token.Wait()
	return errors.Wrapf(token.Error(), "subscribe %s", scopedTopic)
}
