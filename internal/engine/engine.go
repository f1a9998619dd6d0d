package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"checkline/internal/api"
	"checkline/internal/domain"
	"checkline/internal/engine/auth"
	"checkline/internal/events"
	"checkline/internal/wallet"
)

// Engine drives the auth handshake and the per-account operations. It holds
// no business state between passes; every cycle re-authenticates.
type Engine struct {
	API       *api.Client
	Sink      events.Sink
	Log       *zap.Logger
	NewSigner func(privateKey string) (wallet.Signer, error)
}

// New wires an engine around a client and a presentation sink.
func New(client *api.Client, sink events.Sink, log *zap.Logger) Engine {
	if sink == nil {
		sink = events.Discard()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{
		API:       client,
		Sink:      sink,
		Log:       log,
		NewSigner: wallet.New,
	}
}

// Login performs the full handshake for one credential:
// derive identity, fetch challenge, sign, verify, decode user id.
// It fails on the first broken step and never returns a partial session.
func (e Engine) Login(ctx context.Context, privateKey string) (*domain.Session, error) {
	signer, err := e.NewSigner(privateKey)
	if err != nil {
		return nil, err
	}
	return e.login(ctx, signer)
}

func (e Engine) login(ctx context.Context, signer wallet.Signer) (*domain.Session, error) {
	identity := signer.Address()
	masked := domain.MaskIdentity(identity)

	challenge, err := e.API.AuthMessage(ctx, identity, signer.PublicKeyHex())
	if err != nil {
		return nil, fmt.Errorf("fetch challenge: %w", err)
	}
	if challenge.Message == "" && challenge.Nonce == "" {
		return nil, auth.MessageError{Identity: masked}
	}

	signature, err := signer.SignMessage(challenge.Message)
	if err != nil {
		return nil, err
	}

	verified, err := e.API.AuthVerify(ctx, api.VerifyRequest{
		PublicAddress: identity,
		PublicKey:     signer.PublicKeyHex(),
		Signature:     signature,
		Message:       challenge.Message,
		Nonce:         challenge.Nonce,
		WalletType:    "evm",
	})
	if err != nil {
		return nil, fmt.Errorf("verify signature: %w", err)
	}
	if verified.AccessToken == "" || verified.RefreshToken == "" {
		return nil, auth.VerifyError{Identity: masked}
	}

	userID, err := auth.UserIDFromToken(verified.AccessToken)
	if err != nil {
		return nil, err
	}

	e.Log.Debug("session established", zap.String("identity", masked), zap.String("user_id", userID))
	return &domain.Session{
		Identity:     identity,
		AccessToken:  verified.AccessToken,
		RefreshToken: verified.RefreshToken,
		UserID:       userID,
	}, nil
}

// Checkin performs the idempotent daily claim for one session.
//
// A 502 from the claim endpoint means the quest was already completed
// today: the backend is known to answer the duplicate claim through a
// failing gateway path. The reclassification is a workaround for that
// observed behavior and must be revisited if the server changes.
func (e Engine) Checkin(ctx context.Context, s *domain.Session) (domain.CheckinResult, error) {
	err := e.API.CompleteQuest(ctx, s.AccessToken, s.UserID)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == 502 {
			return domain.AlreadyClaimed, nil
		}
		return "", err
	}
	return domain.Claimed, nil
}

// Points reads the current balance for one session. A response without a
// totalPoints field is a zero balance, not an error.
func (e Engine) Points(ctx context.Context, s *domain.Session) (domain.PointsSnapshot, error) {
	resp, err := e.API.Points(ctx, s.AccessToken, s.UserID)
	if err != nil {
		return domain.PointsSnapshot{}, err
	}
	return domain.PointsSnapshot{TotalPoints: resp.TotalPoints}, nil
}

// AccountOp is one authenticated operation applied per account during a
// pass; it returns a short human-readable result.
type AccountOp func(ctx context.Context, s *domain.Session) (string, error)

// CheckinOp adapts Checkin for RunOnce.
func (e Engine) CheckinOp() AccountOp {
	return func(ctx context.Context, s *domain.Session) (string, error) {
		res, err := e.Checkin(ctx, s)
		if err != nil {
			return "", err
		}
		if res == domain.AlreadyClaimed {
			return "already claimed today", nil
		}
		return "claimed", nil
	}
}

// PointsOp adapts Points for RunOnce.
func (e Engine) PointsOp() AccountOp {
	return func(ctx context.Context, s *domain.Session) (string, error) {
		snap, err := e.Points(ctx, s)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d points", snap.TotalPoints), nil
	}
}

// RunOnce sweeps all credentials in input order, logging in and applying op
// for each. Any error for one account is recorded against its masked
// identity and never stops the remaining accounts: one Outcome is produced
// per credential, always.
func (e Engine) RunOnce(ctx context.Context, keys []string, op AccountOp) []domain.Outcome {
	outcomes := make([]domain.Outcome, 0, len(keys))
	for i, key := range keys {
		outcome := e.runAccount(ctx, i, key, op)
		if outcome.Err != nil {
			e.Sink.Error(fmt.Sprintf("%s: %v", outcome.Identity, outcome.Err))
		} else {
			e.Sink.Success(fmt.Sprintf("%s: %s", outcome.Identity, outcome.Result))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// runAccount binds every failure to the account's masked identity. Only
// when the credential itself cannot be parsed, and no identity exists to
// mask, does the positional label stand in.
func (e Engine) runAccount(ctx context.Context, idx int, key string, op AccountOp) domain.Outcome {
	signer, err := e.NewSigner(key)
	if err != nil {
		label := fmt.Sprintf("account %d", idx+1)
		e.Log.Warn("invalid credential", zap.String("account", label), zap.Error(err))
		return domain.Outcome{Identity: label, Err: err}
	}
	masked := domain.MaskIdentity(signer.Address())
	session, err := e.login(ctx, signer)
	if err != nil {
		e.Log.Warn("login failed", zap.String("identity", masked), zap.Error(err))
		return domain.Outcome{Identity: masked, Err: err}
	}
	result, err := op(ctx, session)
	if err != nil {
		e.Log.Warn("operation failed", zap.String("identity", masked), zap.Error(err))
		return domain.Outcome{Identity: masked, Err: err}
	}
	return domain.Outcome{Identity: masked, Result: result}
}
