package ddb

import (
	"context"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/repository"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// Transactions commits compound writes with TransactWriteItems so that a
// redemption, code assignment, cancellation or reviewed submission lands
// entirely or not at all.
type Transactions struct {
	client  Client
	users   *Users
	sprints *Table[domain.Sprint, *domain.Sprint]
	items   *Table[domain.StoreItem, *domain.StoreItem]
	orders  *Table[domain.Order, *domain.Order]
	logger  *zap.Logger
}

var _ repository.Transactions = (*Transactions)(nil)

func NewTransactions(
	client Client,
	users *Users,
	sprints *Table[domain.Sprint, *domain.Sprint],
	items *Table[domain.StoreItem, *domain.StoreItem],
	orders *Table[domain.Order, *domain.Order],
	logger *zap.Logger,
) *Transactions {
	return &Transactions{client: client, users: users, sprints: sprints, items: items, orders: orders, logger: logger}
}

// CommitRedemption debits the user (item 0), creates the order (item 1) and
// saves the item (item 2).
func (s *Transactions) CommitRedemption(ctx context.Context, r repository.Redemption) error {
	debit, err := s.users.pointsUpdate(r.UserID, -r.Cost, r.Now)
	if err != nil {
		return err
	}
	orderPut, restoreOrder, err := s.orders.createPut(r.Order)
	if err != nil {
		return err
	}
	itemPut, restoreItem, err := s.items.savePut(r.Item)
	if err != nil {
		restoreOrder()
		return err
	}

	err = s.commit(ctx, "redemption", []types.TransactWriteItem{
		{Update: debit},
		{Put: orderPut},
		{Put: itemPut},
	})
	if err != nil {
		restoreOrder()
		restoreItem()
		if cancelledAt(err, 0) {
			return repository.ErrInsufficientPoints
		}
		return classify(err, "redemption could not be completed")
	}
	return nil
}

// CommitCodeAssignment saves the order (item 0) and the item (item 1).
func (s *Transactions) CommitCodeAssignment(ctx context.Context, a repository.CodeAssignment) error {
	orderPut, restoreOrder, err := s.orders.savePut(a.Order)
	if err != nil {
		return err
	}
	itemPut, restoreItem, err := s.items.savePut(a.Item)
	if err != nil {
		restoreOrder()
		return err
	}

	err = s.commit(ctx, "code assignment", []types.TransactWriteItem{
		{Put: orderPut},
		{Put: itemPut},
	})
	if err != nil {
		restoreOrder()
		restoreItem()
		return classify(err, "code assignment could not be completed")
	}
	return nil
}

// CommitCancellation saves the order, credits the refund and saves the item
// when one is given.
func (s *Transactions) CommitCancellation(ctx context.Context, c repository.Cancellation) error {
	orderPut, restoreOrder, err := s.orders.savePut(c.Order)
	if err != nil {
		return err
	}
	restores := []func(){restoreOrder}
	undo := func() {
		for _, fn := range restores {
			fn()
		}
	}

	writes := []types.TransactWriteItem{{Put: orderPut}}
	if c.Refund > 0 {
		credit, err := s.users.pointsUpdate(c.Order.UserID, c.Refund, c.Now)
		if err != nil {
			undo()
			return err
		}
		writes = append(writes, types.TransactWriteItem{Update: credit})
	}
	if c.Item != nil {
		itemPut, restoreItem, err := s.items.savePut(c.Item)
		if err != nil {
			undo()
			return err
		}
		restores = append(restores, restoreItem)
		writes = append(writes, types.TransactWriteItem{Put: itemPut})
	}

	if err := s.commit(ctx, "cancellation", writes); err != nil {
		undo()
		return classify(err, "cancellation could not be completed")
	}
	return nil
}

// CommitSubmissionReview saves the sprint (item 0) and credits the
// submitter (item 1) when Credit is positive.
func (s *Transactions) CommitSubmissionReview(ctx context.Context, r repository.SubmissionReview) error {
	sprintPut, restoreSprint, err := s.sprints.savePut(r.Sprint)
	if err != nil {
		return err
	}

	writes := []types.TransactWriteItem{{Put: sprintPut}}
	if r.Credit > 0 {
		credit, err := s.users.pointsUpdate(r.UserID, r.Credit, r.Now)
		if err != nil {
			restoreSprint()
			return err
		}
		writes = append(writes, types.TransactWriteItem{Update: credit})
	}

	if err := s.commit(ctx, "submission review", writes); err != nil {
		restoreSprint()
		return classify(err, "review could not be saved")
	}
	return nil
}

func (s *Transactions) commit(ctx context.Context, op string, writes []types.TransactWriteItem) error {
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	if err != nil {
		s.logger.Warn("Transaction failed",
			zap.String("operation", op),
			zap.Strings("cancellationReasons", cancellationCodes(err)),
			zap.Error(err),
		)
	}
	return err
}
