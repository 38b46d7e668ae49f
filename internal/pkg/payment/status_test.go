package payment

import (
	"testing"

	"github.com/HoshinoLab/CreatorBase/app/models"
)

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		gateway string
		want    string
	}{
		{"OPENED", models.OrderStatusPending},
		{"CREATED", models.OrderStatusPending},
		{"PENDING", models.OrderStatusPending},
		{"CLOSED", models.OrderStatusCompleted},
		{"EXPIRED", models.OrderStatusExpired},
		{"REJECTED", models.OrderStatusRejected},
		{"REFUNDED", models.OrderStatusRefunded},
		{"CANCELLED", models.OrderStatusCancelled},
		{"CANCELED", models.OrderStatusCancelled},
		{"closed", models.OrderStatusCompleted},
		{" closed ", models.OrderStatusCompleted},
		{"SOMETHING_NEW", models.OrderStatusPending},
		{"", models.OrderStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.gateway, func(t *testing.T) {
			if got := MapOrderStatus(tt.gateway); got != tt.want {
				t.Errorf("MapOrderStatus(%q) = %q, want %q", tt.gateway, got, tt.want)
			}
		})
	}
}

func TestClassifyEvent(t *testing.T) {
	tests := []struct {
		event string
		want  TransitionKind
	}{
		{"RECURRENT_PAYMENT.ACTIVE", TransitionSuccess},
		{"RECURRENT_PAYMENT.COMPLETE", TransitionSuccess},
		{"RECURRENT_PAYMENT.CANCELED", TransitionCancel},
		{"RECURRENT_PAYMENT.CANCELLED", TransitionCancel},
		{"RECURRENT_PAYMENT.UNPAID", TransitionUnpaid},
		{"RECURRENT_PAYMENT.PAUSED", TransitionUnpaid},
		{"RECURRENT_PAYMENT.UPDATED", TransitionOther},
		{"recurrent_payment.active", TransitionSuccess},
		{"", TransitionOther},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			if got := ClassifyEvent(tt.event); got != tt.want {
				t.Errorf("ClassifyEvent(%q) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestParseExternalID(t *testing.T) {
	tests := []struct {
		in       string
		wantKey  string
		wantUser uint
		wantOK   bool
	}{
		{"subscription_points_980_42_a1b2c3d4", "points_980", 42, true},
		{"subscription_points_1980_7_deadbeef", "points_1980", 7, true},
		{"order_product_1_42_a1b2c3d4", "", 0, false},
		{"subscription_broken", "", 0, false},
		{"", "", 0, false},
	}

	for _, tt := range tests {
		key, user, ok := ParseExternalID(tt.in)
		if ok != tt.wantOK || key != tt.wantKey || user != tt.wantUser {
			t.Errorf("ParseExternalID(%q) = (%q, %d, %v), want (%q, %d, %v)",
				tt.in, key, user, ok, tt.wantKey, tt.wantUser, tt.wantOK)
		}
	}
}
