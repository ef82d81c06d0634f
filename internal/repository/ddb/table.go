package ddb

import (
	"context"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/repository"
	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Table stores one aggregate type, one item per aggregate.
type Table[T any, PT repository.AggregatePtr[T]] struct {
	client    Client
	tableName string
	entity    string
}

var (
	_ repository.SprintStore = (*Table[domain.Sprint, *domain.Sprint])(nil)
	_ repository.GroupStore  = (*Table[domain.CertificationGroup, *domain.CertificationGroup])(nil)
	_ repository.ItemStore   = (*Table[domain.StoreItem, *domain.StoreItem])(nil)
	_ repository.OrderStore  = (*Table[domain.Order, *domain.Order])(nil)
)

// NewTable binds an aggregate type to a DynamoDB table. entity names the
// aggregate in error messages, e.g. "Sprint".
func NewTable[T any, PT repository.AggregatePtr[T]](client Client, tableName, entity string) *Table[T, PT] {
	return &Table[T, PT]{client: client, tableName: tableName, entity: entity}
}

func NewSprintTable(client Client, tableName string) *Table[domain.Sprint, *domain.Sprint] {
	return NewTable[domain.Sprint](client, tableName, "Sprint")
}

func NewGroupTable(client Client, tableName string) *Table[domain.CertificationGroup, *domain.CertificationGroup] {
	return NewTable[domain.CertificationGroup](client, tableName, "Certification group")
}

func NewItemTable(client Client, tableName string) *Table[domain.StoreItem, *domain.StoreItem] {
	return NewTable[domain.StoreItem](client, tableName, "Store item")
}

func NewOrderTable(client Client, tableName string) *Table[domain.Order, *domain.Order] {
	return NewTable[domain.Order](client, tableName, "Order")
}

func (t *Table[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.tableName),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(err, "failed to get "+t.entity)
	}
	if len(out.Item) == 0 {
		return nil, appErrors.NewNotFound(t.entity + " not found")
	}

	item := new(T)
	if err := unmarshalItem(out.Item, item); err != nil {
		return nil, appErrors.NewInternal("failed to unmarshal "+t.entity, err)
	}
	return item, nil
}

// List scans the whole table. Filters are ANDed equality conditions.
func (t *Table[T, PT]) List(ctx context.Context, filters ...repository.Filter) ([]*T, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(t.tableName)}
	if len(filters) > 0 {
		cond := expression.Name(filters[0].Attribute).Equal(expression.Value(filters[0].Value))
		for _, f := range filters[1:] {
			cond = cond.And(expression.Name(f.Attribute).Equal(expression.Value(f.Value)))
		}
		expr, err := expression.NewBuilder().WithFilter(cond).Build()
		if err != nil {
			return nil, appErrors.NewInternal("failed to build filter", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	items := []*T{}
	paginator := dynamodb.NewScanPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify(err, "failed to list "+t.entity)
		}
		for _, raw := range page.Items {
			item := new(T)
			if err := unmarshalItem(raw, item); err != nil {
				return nil, appErrors.NewInternal("failed to unmarshal "+t.entity, err)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

func (t *Table[T, PT]) Create(ctx context.Context, item *T) error {
	put, restore, err := t.createPut(item)
	if err != nil {
		return err
	}
	if err := t.putItem(ctx, put); err != nil {
		restore()
		if isConditionFailed(err) {
			return appErrors.NewConflict(t.entity+" "+PT(item).AggregateID()+" already exists", err)
		}
		return classify(err, "failed to create "+t.entity)
	}
	return nil
}

func (t *Table[T, PT]) Save(ctx context.Context, item *T) error {
	put, restore, err := t.savePut(item)
	if err != nil {
		return err
	}
	if err := t.putItem(ctx, put); err != nil {
		restore()
		if isConditionFailed(err) {
			return appErrors.NewConflict(t.entity+" was modified concurrently", err)
		}
		return classify(err, "failed to save "+t.entity)
	}
	return nil
}

func (t *Table[T, PT]) Delete(ctx context.Context, id string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return appErrors.NewInternal("failed to build condition", err)
	}
	_, err = t.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(t.tableName),
		Key:                      idKey(id),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		if isConditionFailed(err) {
			return appErrors.NewNotFound(t.entity + " not found")
		}
		return classify(err, "failed to delete "+t.entity)
	}
	return nil
}

func (t *Table[T, PT]) putItem(ctx context.Context, put *types.Put) error {
	_, err := t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 put.TableName,
		Item:                      put.Item,
		ConditionExpression:       put.ConditionExpression,
		ExpressionAttributeNames:  put.ExpressionAttributeNames,
		ExpressionAttributeValues: put.ExpressionAttributeValues,
	})
	return err
}

// createPut builds a put that fails when the id is taken. The item's version
// is set to 1; call restore if the write does not happen.
func (t *Table[T, PT]) createPut(item *T) (*types.Put, func(), error) {
	agg := PT(item)
	previous := agg.AggregateVersion()
	restore := func() { agg.SetAggregateVersion(previous) }

	agg.SetAggregateVersion(1)
	put, err := t.conditionalPut(item, expression.AttributeNotExists(expression.Name("id")))
	if err != nil {
		restore()
		return nil, nil, err
	}
	return put, restore, nil
}

// savePut builds a put conditioned on the stored version still matching the
// item's. The item's version is advanced; call restore if the write does not
// happen. Items written before versioning existed have no version attribute
// and are matched by version 0.
func (t *Table[T, PT]) savePut(item *T) (*types.Put, func(), error) {
	agg := PT(item)
	expected := agg.AggregateVersion()
	restore := func() { agg.SetAggregateVersion(expected) }

	cond := expression.Name("version").Equal(expression.Value(expected))
	if expected == 0 {
		cond = expression.AttributeExists(expression.Name("id")).
			And(expression.AttributeNotExists(expression.Name("version")))
	}

	agg.SetAggregateVersion(expected + 1)
	put, err := t.conditionalPut(item, cond)
	if err != nil {
		restore()
		return nil, nil, err
	}
	return put, restore, nil
}

func (t *Table[T, PT]) conditionalPut(item *T, cond expression.ConditionBuilder) (*types.Put, error) {
	av, err := marshalItem(item)
	if err != nil {
		return nil, appErrors.NewInternal("failed to marshal "+t.entity, err)
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return nil, appErrors.NewInternal("failed to build condition", err)
	}
	return &types.Put{
		TableName:                 aws.String(t.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}
