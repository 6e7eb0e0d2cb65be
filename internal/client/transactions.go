package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// TransactionInput is the body of a create call. Amount is sent as typed.
type TransactionInput struct {
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

// TransactionList is a decoded list call. Malformed counts records that were
// dropped because their amount was not a number.
type TransactionList struct {
	Items     []core.Transaction
	Malformed int
}

// wireTransaction mirrors the server shape but keeps amount raw so one bad
// record does not fail the whole list.
type wireTransaction struct {
	ID          string          `json:"_id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	Date        core.Date       `json:"date"`
	Description string          `json:"description"`
	CreatedAt   string          `json:"created_at"`
}

var errMalformedAmount = errors.New("malformed amount")

func (w wireTransaction) toCore(kind core.Kind) (core.Transaction, error) {
	amount, err := lenientDecimal(w.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		ID:          w.ID,
		UserID:      w.UserID,
		Kind:        kind,
		Title:       w.Title,
		Amount:      amount,
		Category:    w.Category,
		Date:        w.Date,
		Description: w.Description,
	}
	if t, err := time.Parse(time.RFC3339Nano, w.CreatedAt); err == nil {
		tx.CreatedAt = t
	}
	return tx, nil
}

// lenientDecimal accepts a JSON number or a numeric string.
func lenientDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return decimal.Zero, errMalformedAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errMalformedAmount
	}
	return d, nil
}

func kindPath(kind core.Kind) (string, error) {
	if !kind.Valid() {
		return "", core.ErrInvalidKind
	}
	return "/api/" + string(kind), nil
}

// CreateTransaction stores a new record and returns its id.
func (c *Client) CreateTransaction(ctx context.Context, kind core.Kind, in TransactionInput) (string, error) {
	path, err := kindPath(kind)
	if err != nil {
		return "", err
	}
	var resp map[string]any
	if err := c.do(ctx, http.MethodPost, path+"/", true, in, &resp); err != nil {
		return "", err
	}
	id, _ := resp[string(kind)+"_id"].(string)
	if id == "" {
		return "", fmt.Errorf("create %s: response has no id", kind)
	}
	return id, nil
}

// ListTransactions fetches every record of kind, newest first as the server
// orders them.
func (c *Client) ListTransactions(ctx context.Context, kind core.Kind) (TransactionList, error) {
	path, err := kindPath(kind)
	if err != nil {
		return TransactionList{}, err
	}
	var resp map[string][]json.RawMessage
	if err := c.do(ctx, http.MethodGet, path+"/", true, nil, &resp); err != nil {
		return TransactionList{}, err
	}

	raws := resp[string(kind)+"s"]
	list := TransactionList{Items: make([]core.Transaction, 0, len(raws))}
	for _, raw := range raws {
		var w wireTransaction
		if err := json.Unmarshal(raw, &w); err != nil {
			list.Malformed++
			continue
		}
		tx, err := w.toCore(kind)
		if err != nil {
			list.Malformed++
			continue
		}
		list.Items = append(list.Items, tx)
	}

	if list.Malformed > 0 {
		c.logger.WarnContext(ctx, "Dropped malformed records",
			applog.FieldKind, kind,
			applog.FieldSkipped, list.Malformed)
	}
	return list, nil
}

// UpdateTransaction sends only the non-nil fields of patch.
func (c *Client) UpdateTransaction(ctx context.Context, kind core.Kind, id string, patch core.TransactionPatch) error {
	path, err := kindPath(kind)
	if err != nil {
		return err
	}
	if patch.IsEmpty() {
		return core.ErrEmptyPatch
	}

	body := map[string]string{}
	if patch.Title != nil {
		body["title"] = *patch.Title
	}
	if patch.Amount != nil {
		body["amount"] = patch.Amount.String()
	}
	if patch.Category != nil {
		body["category"] = *patch.Category
	}
	if patch.Date != nil {
		body["date"] = patch.Date.String()
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	return c.do(ctx, http.MethodPut, path+"/"+url.PathEscape(id), true, body, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, kind core.Kind, id string) error {
	path, err := kindPath(kind)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, path+"/"+url.PathEscape(id), true, nil, nil)
}
