package notify

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// SubmitNotice 提交完成後發佈的訊息內容
type SubmitNotice struct {
	QuotationNo string `json:"quotation_no"`
	Records     int    `json:"records"`
	Items       int    `json:"items"`
}

// Notifier 提交完成通知。選配功能：未設定 broker 時為 no-op，
// 通知失敗只記錄不影響提交結果。
type Notifier struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

// NewNotifier 連上 broker；broker 留空回傳停用的 Notifier。
func NewNotifier(broker, clientID, username, password, topic string, logger *zap.Logger) (*Notifier, error) {
	if broker == "" {
		return &Notifier{logger: logger}, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
	}
	if password != "" {
		opts.SetPassword(password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Notifier{client: client, topic: topic, logger: logger}, nil
}

// Enabled reports whether a broker connection is configured.
func (n *Notifier) Enabled() bool {
	return n.client != nil
}

// SubmitComplete 發佈提交完成通知（QoS 1，不保留）
func (n *Notifier) SubmitComplete(notice SubmitNotice) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	token := n.client.Publish(n.topic, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", n.topic, token.Error())
	}
	n.logger.Info("submit notice published",
		zap.String("topic", n.topic),
		zap.String("quotation_no", notice.QuotationNo))
	return nil
}

// Close 斷線（關機流程呼叫）
func (n *Notifier) Close() {
	if n.client != nil {
		n.client.Disconnect(250)
	}
}
