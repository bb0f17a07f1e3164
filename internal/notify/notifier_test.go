// internal/notify/notifier_test.go
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-triage/internal/common/logger"
	"claims-triage/internal/models"
)

// ==========================
// Test Doubles
// ==========================

type mockSNSClient struct {
	published []*sns.PublishInput
	err       error
}

func (m *mockSNSClient) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.published = append(m.published, params)
	return &sns.PublishOutput{}, nil
}

// ==========================
// Test Helper Functions
// ==========================

func createSIUClaim() models.ClaimRecord {
	return models.ClaimRecord{
		ID:          "c1",
		ClaimNumber: "CLM-2024-0042",
		Scores:      models.ScoreResult{FraudScore: 0.92, FraudLabel: 1},
		Decision: models.RoutingDecision{
			RoutingTeam: "SIU (Fraud)",
			Adjuster:    "SIU Investigator",
		},
	}
}

// ==========================
// Notifier Tests
// ==========================

func TestNotifyFraudReferral_PublishesAlert(t *testing.T) {
	client := &mockSNSClient{}
	n := New(client, "arn:aws:sns:us-east-1:123456789012:fraud-alerts", logger.NewTestLogger(t))

	n.NotifyFraudReferral(context.Background(), createSIUClaim())

	require.Len(t, client.published, 1)
	input := client.published[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:fraud-alerts", *input.TopicArn)
	assert.Equal(t, "Fraud referral: CLM-2024-0042", *input.Subject)

	var alert fraudAlert
	require.NoError(t, json.Unmarshal([]byte(*input.Message), &alert))
	assert.Equal(t, "c1", alert.ClaimID)
	assert.Equal(t, 0.92, alert.FraudScore)
	assert.Equal(t, "SIU (Fraud)", alert.RoutingTeam)
	assert.False(t, alert.AlertedAt.IsZero())
}

func TestNotifyFraudReferral_PublishFailureIsSwallowed(t *testing.T) {
	client := &mockSNSClient{err: errors.New("sns unavailable")}
	n := New(client, "arn:aws:sns:us-east-1:123456789012:fraud-alerts", logger.NewTestLogger(t))

	// Must not panic or propagate the failure.
	n.NotifyFraudReferral(context.Background(), createSIUClaim())
	assert.Empty(t, client.published)
}

func TestNotifyFraudReferral_SkipsWithoutTopic(t *testing.T) {
	client := &mockSNSClient{}
	n := New(client, "", logger.NewTestLogger(t))

	n.NotifyFraudReferral(context.Background(), createSIUClaim())
	assert.Empty(t, client.published)
}

func TestNotifyFraudReferral_NilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.NotifyFraudReferral(context.Background(), createSIUClaim())
}
