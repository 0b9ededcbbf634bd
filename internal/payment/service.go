package payment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/linksnip/linksnip/internal/errx"
	"github.com/linksnip/linksnip/internal/quota"
)

// PlanOption is a purchasable quota plan. Amount is in the currency's
// smallest unit so it can go straight to the gateway.
type PlanOption struct {
	Name   string
	Links  int
	Amount int64
}

// Plans are the purchasable tiers, keyed by plan name.
var Plans = map[string]PlanOption{
	"starter": {Name: "starter", Links: 10, Amount: 4900},
	"growth":  {Name: "growth", Links: 100, Amount: 29900},
	"scale":   {Name: "scale", Links: 1000, Amount: 149900},
}

// Service ties the gateway flow to the quota ledger: it creates orders
// for plan purchases and, on a verified payment, grants the plan.
type Service interface {
	CreateOrder(ctx context.Context, userID, planName string) (Order, PlanOption, error)
	VerifyAndGrant(ctx context.Context, userID string, conf Confirmation) error
}

// Confirmation is what the client relays back from the gateway checkout.
type Confirmation struct {
	OrderID   string
	PaymentID string
	Signature string
	PlanName  string
}

type service struct {
	gateway  GatewayClient
	verifier *Verifier
	ledger   quota.Ledger
	logger   *slog.Logger
}

// NewService creates a new payment service.
func NewService(gateway GatewayClient, verifier *Verifier, ledger quota.Ledger, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		gateway:  gateway,
		verifier: verifier,
		ledger:   ledger,
		logger:   logger,
	}
}

func (s *service) CreateOrder(ctx context.Context, userID, planName string) (Order, PlanOption, error) {
	const op = "payment.service.CreateOrder"

	plan, ok := Plans[planName]
	if !ok {
		return Order{}, PlanOption{}, errx.E(op, errx.Invalid, errors.New("unknown plan"))
	}

	order, err := s.gateway.CreateOrder(ctx, plan.Amount, "quota:"+userID, map[string]string{
		"plan":    plan.Name,
		"user_id": userID,
	})
	if err != nil {
		return Order{}, PlanOption{}, errx.E(op, errx.KindOf(err), err)
	}

	s.logger.InfoContext(ctx, "payment order created",
		"order_id", order.ID,
		"user_id", userID,
		"plan", plan.Name,
	)
	return order, plan, nil
}

// VerifyAndGrant checks the gateway signature and, only on success,
// grants the purchased plan. The grant replaces any existing quota
// record for the user.
func (s *service) VerifyAndGrant(ctx context.Context, userID string, conf Confirmation) error {
	const op = "payment.service.VerifyAndGrant"

	plan, ok := Plans[conf.PlanName]
	if !ok {
		return errx.E(op, errx.Invalid, errors.New("unknown plan"))
	}

	if err := s.verifier.Verify(conf.OrderID, conf.PaymentID, conf.Signature); err != nil {
		s.logger.WarnContext(ctx, "payment verification failed",
			"order_id", conf.OrderID,
			"user_id", userID,
		)
		return errx.E(op, errx.KindOf(err), err)
	}

	err := s.ledger.Grant(ctx, userID, quota.Plan{
		LinksGranted: plan.Links,
		AmountPaid:   float64(plan.Amount) / 100,
	})
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	s.logger.InfoContext(ctx, "quota granted",
		"user_id", userID,
		"plan", plan.Name,
		"links", plan.Links,
	)
	return nil
}
