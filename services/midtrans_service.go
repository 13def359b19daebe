package services

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"

	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/utils"
)

// GatewayCharge is the gateway's answer to a QRIS charge.
type GatewayCharge struct {
	TransactionID string
	Status        string
	QRString      string
	QRImageURL    string
}

// PaymentGateway charges and queries electronic payments by intent reference.
type PaymentGateway interface {
	ChargeQRIS(ctx context.Context, reference string, amount float64) (*GatewayCharge, error)
	Status(ctx context.Context, reference string) (string, error)
	ValidateSignature(reference, statusCode, grossAmount, signature string) bool
}

// MidtransGateway implements PaymentGateway on the Midtrans Core API.
type MidtransGateway struct {
	serverKey string
	client    coreapi.Client
}

func NewMidtransGateway(serverKey, env string) (*MidtransGateway, error) {
	if serverKey == "" {
		return nil, fmt.Errorf("MIDTRANS_SERVER_KEY is not set")
	}
	environment := midtrans.Sandbox
	if env == "production" {
		environment = midtrans.Production
	}
	g := &MidtransGateway{serverKey: serverKey}
	g.client.New(serverKey, environment)
	return g, nil
}

func (g *MidtransGateway) ChargeQRIS(_ context.Context, reference string, amount float64) (*GatewayCharge, error) {
	resp, mErr := g.client.ChargeTransaction(&coreapi.ChargeReq{
		PaymentType: coreapi.PaymentTypeQris,
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  reference,
			GrossAmt: int64(math.Round(amount)),
		},
	})
	if mErr != nil {
		utils.ErrorLogger.Printf("Midtrans charge %s failed: %s", reference, mErr.Message)
		return nil, fmt.Errorf("midtrans charge failed: %s", mErr.Message)
	}

	charge := &GatewayCharge{
		TransactionID: resp.TransactionID,
		Status:        MapMidtransStatus(resp.TransactionStatus),
		QRString:      resp.QRString,
	}
	for _, a := range resp.Actions {
		if a.Name == "generate-qr-code" {
			charge.QRImageURL = a.URL
		}
	}
	utils.InfoLogger.Printf("Midtrans charge %s created: transaction %s", reference, resp.TransactionID)
	return charge, nil
}

func (g *MidtransGateway) Status(_ context.Context, reference string) (string, error) {
	resp, mErr := g.client.CheckTransaction(reference)
	if mErr != nil {
		return "", fmt.Errorf("midtrans status check failed: %s", mErr.Message)
	}
	return MapMidtransStatus(resp.TransactionStatus), nil
}

// ValidateSignature checks a notification's sha512(order_id+status_code+gross_amount+server_key).
func (g *MidtransGateway) ValidateSignature(reference, statusCode, grossAmount, signature string) bool {
	sum := sha512.Sum512([]byte(reference + statusCode + grossAmount + g.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// MapMidtransStatus maps a Midtrans transaction status to a payment status.
func MapMidtransStatus(status string) string {
	switch status {
	case "capture", "settlement":
		return models.PaymentStatusCompleted
	case "deny", "cancel", "expire", "failure":
		return models.PaymentStatusFailed
	case "refund", "partial_refund":
		return models.PaymentStatusRefunded
	default:
		return models.PaymentStatusPending
	}
}
