// internal/notify/notifier.go
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"claims-triage/internal/common/logger"
	"claims-triage/internal/common/metrics"
	"claims-triage/internal/models"
)

// SNSService is the slice of the SNS API the notifier uses.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier publishes fraud-referral alerts when a claim routes to the
// SIU team. Publishing is best-effort: failures are logged and counted,
// never propagated to the pipeline.
type Notifier struct {
	sns      SNSService
	topicARN string
	logger   logger.Logger
}

func New(client SNSService, topicARN string, log logger.Logger) *Notifier {
	return &Notifier{
		sns:      client,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"component": "fraud-notifier"}),
	}
}

type fraudAlert struct {
	ClaimID     string    `json:"claim_id"`
	ClaimNumber string    `json:"claim_number"`
	FraudScore  float64   `json:"fraud_score"`
	RoutingTeam string    `json:"routing_team"`
	Adjuster    string    `json:"adjuster"`
	AlertedAt   time.Time `json:"alerted_at"`
}

// NotifyFraudReferral publishes an alert for a claim assigned to the SIU
// queue.
func (n *Notifier) NotifyFraudReferral(ctx context.Context, claim models.ClaimRecord) {
	if n == nil || n.sns == nil || n.topicARN == "" {
		return
	}

	alert := fraudAlert{
		ClaimID:     claim.ID,
		ClaimNumber: claim.ClaimNumber,
		FraudScore:  claim.Scores.FraudScore,
		RoutingTeam: claim.Decision.RoutingTeam,
		Adjuster:    claim.Decision.Adjuster,
		AlertedAt:   time.Now().UTC(),
	}

	body, err := json.Marshal(alert)
	if err != nil {
		n.degraded(claim.ID, err)
		return
	}

	_, err = n.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("Fraud referral: " + claim.ClaimNumber),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		n.degraded(claim.ID, err)
		return
	}

	n.logger.Info("published fraud referral alert", map[string]interface{}{
		"claim_id":     claim.ID,
		"claim_number": claim.ClaimNumber,
	})
}

func (n *Notifier) degraded(claimID string, err error) {
	n.logger.Warn("failed to publish fraud referral alert", map[string]interface{}{
		"claim_id": claimID,
		"error":    err.Error(),
	})
	metrics.DegradedModeEvents.WithLabelValues("sns_notify").Inc()
}
