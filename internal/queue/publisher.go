package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hoyun5295-ctrl/targetup/internal/models"
)

// DispatchJob is the send-intent event published when a campaign
// transitions to sent. Downstream gateway workers consume it; the engine
// itself never talks to a telecom gateway.
type DispatchJob struct {
	CampaignID  int       `json:"campaign_id"`
	SendAt      time.Time `json:"send_at"`
	TotalCount  int       `json:"total_count"`
	TargetsPath string    `json:"targets_path,omitempty"`
	VariantID   string    `json:"variant_id"`
	SMSText     string    `json:"sms_text"`
	LMSText     string    `json:"lms_text"`
}

// Publisher publishes dispatch-intent jobs to RabbitMQ
type Publisher struct {
	conn      *Connection
	queueName string
}

// NewPublisher declares the durable queue and returns a publisher
func NewPublisher(conn *Connection, queueName string) (*Publisher, error) {
	if conn == nil {
		return nil, errors.New("connection cannot be nil")
	}
	if queueName == "" {
		return nil, errors.New("queue name cannot be empty")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Publisher{conn: conn, queueName: queueName}, nil
}

// PublishDispatch publishes the send intent for a campaign
func (p *Publisher) PublishDispatch(campaign *models.Campaign) error {
	job := DispatchJob{
		CampaignID: campaign.ID,
		SendAt:     campaign.SendAt,
		TotalCount: campaign.TotalCount,
		VariantID:  campaign.SelectedVariantID,
		SMSText:    campaign.SMSText,
		LMSText:    campaign.LMSText,
	}
	if campaign.TargetsPath != nil {
		job.TargetsPath = *campaign.TargetsPath
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch job: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	err = ch.Publish(
		"",          // exchange (default)
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish dispatch job: %w", err)
	}

	return nil
}

// Close closes the publisher (no-op, connection managed externally)
func (p *Publisher) Close() error {
	return nil
}
