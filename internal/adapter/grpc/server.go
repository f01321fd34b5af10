package grpc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/cryptofolio-backend/internal/domain"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/intake"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/portfolio"
	"github.com/simaogato/cryptofolio-backend/internal/usecase/quotes"
)

// QuoteFetcher returns the current quotes and the tier that served them
type QuoteFetcher interface {
	Fetch(ctx context.Context) (domain.Quotes, quotes.Tier)
}

// Server implements PortfolioServiceServer
type Server struct {
	PortfolioService *portfolio.PortfolioService
	Intake           *intake.TransactionIntake
	Quotes           QuoteFetcher
}

// NewServer creates a new gRPC server instance
func NewServer(
	portfolioService *portfolio.PortfolioService,
	transactionIntake *intake.TransactionIntake,
	quoteFetcher QuoteFetcher,
) *Server {
	return &Server{
		PortfolioService: portfolioService,
		Intake:           transactionIntake,
		Quotes:           quoteFetcher,
	}
}

// CreatePortfolio handles the CreatePortfolio RPC
func (s *Server) CreatePortfolio(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	p, err := s.PortfolioService.CreatePortfolio(ctx, userID, stringField(req, "name"))
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]interface{}{
		"id":         p.ID.String(),
		"user_id":    p.UserID.String(),
		"name":       p.Name,
		"created_at": formatTime(p.CreatedAt),
	})
}

// GetPortfolioDetails handles the GetPortfolioDetails RPC
func (s *Server) GetPortfolioDetails(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}

	summary, err := s.PortfolioService.GetPortfolioDetails(ctx, portfolioID, userID)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(summaryToMap(summary))
}

// GetTotalHolding handles the GetTotalHolding RPC
func (s *Server) GetTotalHolding(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}
	assetID, err := uuidField(req, "asset_id")
	if err != nil {
		return nil, err
	}

	quantity, err := s.PortfolioService.GetTotalHolding(ctx, portfolioID, assetID, userID)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]interface{}{
		"portfolio_id": portfolioID.String(),
		"asset_id":     assetID.String(),
		"quantity":     quantity.String(),
	})
}

// CreateTransaction handles the CreateTransaction RPC
func (s *Server) CreateTransaction(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}
	assetID, err := uuidField(req, "asset_id")
	if err != nil {
		return nil, err
	}
	quantity, err := decimalField(req, "quantity")
	if err != nil {
		return nil, err
	}
	unitPrice, err := decimalField(req, "unit_price")
	if err != nil {
		return nil, err
	}
	txType, err := domain.ParseTransactionType(stringField(req, "transaction_type"))
	if err != nil {
		return nil, mapError(err)
	}

	tx, err := s.Intake.Create(ctx, intake.CreateTransactionInput{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		OwnerUserID: userID,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Type:        txType,
	})
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]interface{}{
		"id":               tx.ID.String(),
		"portfolio_id":     tx.PortfolioID.String(),
		"asset_id":         tx.AssetID.String(),
		"quantity":         tx.Quantity.String(),
		"unit_price":       tx.UnitPrice.String(),
		"total":            tx.Total().String(),
		"transaction_type": string(tx.Type),
		"created_at":       formatTime(tx.CreatedAt),
	})
}

// GetTransactionMetrics handles the GetTransactionMetrics RPC
func (s *Server) GetTransactionMetrics(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}

	var assetID *uuid.UUID
	if stringField(req, "asset_id") != "" {
		id, err := uuidField(req, "asset_id")
		if err != nil {
			return nil, err
		}
		assetID = &id
	}

	m, err := s.PortfolioService.GetTransactionMetrics(ctx, portfolioID, userID, assetID)
	if err != nil {
		return nil, mapError(err)
	}

	return newStruct(map[string]interface{}{
		"total_bought": m.TotalBought.String(),
		"total_sold":   m.TotalSold.String(),
		"net_position": m.NetPosition.String(),
		"count":        m.Count,
	})
}

// ListHistory handles the ListHistory RPC
func (s *Server) ListHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}

	history, err := s.PortfolioService.ListHistory(ctx, portfolioID, userID)
	if err != nil {
		return nil, mapError(err)
	}

	entries := make([]interface{}, len(history))
	for i, h := range history {
		entries[i] = historyToMap(h)
	}
	return newStruct(map[string]interface{}{"entries": entries})
}

// ListSnapshots handles the ListSnapshots RPC. "since" is optional RFC 3339.
func (s *Server) ListSnapshots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	portfolioID, err := uuidField(req, "portfolio_id")
	if err != nil {
		return nil, err
	}

	var since time.Time
	if raw := stringField(req, "since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid since format: %v", err)
		}
	}

	snaps, err := s.PortfolioService.ListSnapshots(ctx, portfolioID, userID, since)
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]interface{}, len(snaps))
	for i, snap := range snaps {
		out[i] = map[string]interface{}{
			"id":          snap.ID.String(),
			"total_value": snap.TotalValue.String(),
			"recorded_at": formatTime(snap.RecordedAt),
		}
	}
	return newStruct(map[string]interface{}{"snapshots": out})
}

// GetQuotes handles the GetQuotes RPC
func (s *Server) GetQuotes(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if _, err := callerID(ctx); err != nil {
		return nil, err
	}

	q, tier := s.Quotes.Fetch(ctx)

	out := make(map[string]interface{}, len(q))
	for symbol, quote := range q {
		out[symbol] = quoteToMap(quote)
	}
	return newStruct(map[string]interface{}{
		"source": string(tier),
		"quotes": out,
	})
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return userID, nil
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return out, nil
}

func stringField(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

func uuidField(req *structpb.Struct, key string) (uuid.UUID, error) {
	id, err := uuid.Parse(stringField(req, key))
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return id, nil
}

// decimalField accepts a decimal string or a JSON number
func decimalField(req *structpb.Struct, key string) (decimal.Decimal, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "missing %s", key)
	}
	if _, isNumber := v.GetKind().(*structpb.Value_NumberValue); isNumber {
		return decimal.NewFromFloat(v.GetNumberValue()), nil
	}
	d, err := decimal.NewFromString(v.GetStringValue())
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
