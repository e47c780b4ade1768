package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

const (
	maxProofSize               = 5 << 20
	maxTransactionReferenceLen = 255
	defaultProofExt            = "jpg"
)

var allowedProofExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"pdf":  true,
	"webp": true,
}

// BlobStore keeps uploaded files. Store returns the stored path, which is
// what the database references. Open of a missing path wraps fs.ErrNotExist.
type BlobStore interface {
	Store(ctx context.Context, path string, body io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
}

type PaymentProofUsecase struct {
	tx    repo.TransactionManager
	blobs BlobStore
}

// DI
func NewPaymentProofUsecase(tx repo.TransactionManager, blobs BlobStore) *PaymentProofUsecase {
	return &PaymentProofUsecase{tx: tx, blobs: blobs}
}

type SubmitProofInput struct {
	OrderID              int64
	File                 io.Reader
	Filename             string
	Size                 int64
	PaymentMethodID      *int64
	TransactionReference *string
}

// SubmitProof attaches a buyer's proof to the order's latest payment,
// resetting it to pending, or creates the first payment for the order.
// The order row is locked first, then its latest payment, so concurrent
// submissions for one order serialize even before any payment exists.
func (u *PaymentProofUsecase) SubmitProof(ctx context.Context, buyerUserID int64, in SubmitProofInput) (model.Payment, error) {
	if buyerUserID <= 0 {
		return model.Payment{}, ErrUnauthenticated()
	}
	if in.OrderID <= 0 {
		return model.Payment{}, ErrValidation("invalid id")
	}
	if in.File == nil {
		return model.Payment{}, ErrValidation("proof is required")
	}
	if in.Size > maxProofSize {
		return model.Payment{}, ErrValidation("proof must be 5MB or smaller")
	}
	ext, err := proofExt(in.Filename)
	if err != nil {
		return model.Payment{}, err
	}
	ref, err := normalizeReference(in.TransactionReference)
	if err != nil {
		return model.Payment{}, err
	}

	var (
		out      model.Payment
		stored   string
		previous string
	)

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, in.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("order")
		}
		if err != nil {
			return err
		}
		if o.UserID != buyerUserID {
			return ErrNotFound("order")
		}

		latest, err := r.Payments().FindLatestByOrderIDForUpdate(ctx, o.ID)
		hasLatest := true
		if errors.Is(err, repo.ErrNotFound) {
			hasLatest = false
		} else if err != nil {
			return err
		}

		var pmID int64
		switch {
		case in.PaymentMethodID != nil:
			ok, err := r.PaymentMethods().Exists(ctx, *in.PaymentMethodID)
			if err != nil {
				return err
			}
			if !ok {
				return ErrValidation("payment method not found")
			}
			pmID = *in.PaymentMethodID
		case o.PaymentMethodID != nil:
			pmID = *o.PaymentMethodID
		default:
			return ErrValidation("payment_method_id is required for this order")
		}

		path := fmt.Sprintf("payment_proofs/%d/%s.%s", o.ID, uuid.NewString(), ext)
		stored, err = u.blobs.Store(ctx, path, in.File)
		if err != nil {
			stored = ""
			return err
		}

		if hasLatest {
			if latest.ProofPath != nil {
				previous = *latest.ProofPath
			}
			latest.PaymentMethodID = pmID
			if ref != nil {
				latest.TransactionReference = ref
			}
			latest.ProofPath = &stored
			latest.Status = model.PaymentStatusPending
			latest.PaidAt = nil

			if err := r.Payments().Save(ctx, latest); err != nil {
				return err
			}
			out = latest
		} else {
			p, err := r.Payments().Create(ctx, model.Payment{
				OrderID:              o.ID,
				PaymentMethodID:      pmID,
				Amount:               o.TotalAmount,
				TransactionReference: ref,
				ProofPath:            &stored,
				Status:               model.PaymentStatusPending,
			})
			if err != nil {
				return err
			}
			out = p
		}

		return appendOrderEvent(ctx, r, o.ID, model.EventPaymentProofSubmitted, proofSubmittedEvent{
			PaymentID: out.ID,
			OrderID:   o.ID,
			ProofPath: stored,
		})
	})
	if err != nil {
		// the new blob is unreferenced after rollback
		if stored != "" {
			u.deleteBlob(ctx, stored)
		}
		return model.Payment{}, err
	}

	if previous != "" && previous != stored {
		u.deleteBlob(ctx, previous)
	}
	return out, nil
}

// OpenProof returns the stored proof at path for the order's buyer or an
// admin. Unknown paths and other users get not found.
func (u *PaymentProofUsecase) OpenProof(ctx context.Context, userID int64, admin bool, path string) (io.ReadCloser, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated()
	}
	if path == "" {
		return nil, ErrNotFound("proof")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Payments().FindByProofPath(ctx, path)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("proof")
		}
		if err != nil {
			return err
		}
		if admin {
			return nil
		}

		o, err := r.Orders().FindByID(ctx, p.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNotFound("proof")
		}
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrNotFound("proof")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rc, err := u.blobs.Open(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound("proof")
	}
	if err != nil {
		return nil, err
	}
	return rc, nil
}

// ProofURL resolves a stored proof path for clients.
func (u *PaymentProofUsecase) ProofURL(path string) string {
	return u.blobs.URL(path)
}

func (u *PaymentProofUsecase) deleteBlob(ctx context.Context, path string) {
	if err := u.blobs.Delete(context.WithoutCancel(ctx), path); err != nil {
		slog.WarnContext(ctx, "proof blob delete failed", slog.String("path", path), slog.Any("err", err))
	}
}

func proofExt(filename string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		return defaultProofExt, nil
	}
	if !allowedProofExts[ext] {
		return "", ErrValidation("proof must be jpg, jpeg, png, pdf or webp")
	}
	return ext, nil
}

func normalizeReference(s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	if len(v) > maxTransactionReferenceLen {
		return nil, ErrValidation("transaction_reference too long")
	}
	return &v, nil
}
