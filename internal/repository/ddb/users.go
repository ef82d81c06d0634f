package ddb

import (
	"context"
	"errors"
	"time"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/repository"
	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Users stores user profiles. Points are changed with ADD updates, never by
// rewriting the item.
type Users struct {
	client    Client
	tableName string
}

var _ repository.UserStore = (*Users)(nil)

func NewUsers(client Client, tableName string) *Users {
	return &Users{client: client, tableName: tableName}
}

func (u *Users) Get(ctx context.Context, id string) (*domain.User, error) {
	out, err := u.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(u.tableName),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(err, "failed to get user")
	}
	if len(out.Item) == 0 {
		return nil, appErrors.NewNotFound("User not found")
	}

	var user domain.User
	if err := unmarshalItem(out.Item, &user); err != nil {
		return nil, appErrors.NewInternal("failed to unmarshal user", err)
	}
	return &user, nil
}

// Upsert writes the profile fields, creating the user with zero points when
// it does not exist yet.
func (u *Users) Upsert(ctx context.Context, id, email, name string, now time.Time) (*domain.User, error) {
	update := expression.
		Set(expression.Name("email"), expression.Value(email)).
		Set(expression.Name("name"), expression.Value(name)).
		Set(expression.Name("updatedAt"), expression.Value(now)).
		Set(expression.Name("createdAt"), expression.Name("createdAt").IfNotExists(expression.Value(now))).
		Set(expression.Name("points"), expression.Name("points").IfNotExists(expression.Value(0))).
		Add(expression.Name("version"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return nil, appErrors.NewInternal("failed to build update", err)
	}

	out, err := u.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(u.tableName),
		Key:                       idKey(id),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		return nil, classify(err, "failed to save user")
	}
	return decodeUser(out.Attributes)
}

// AdjustPoints adds delta to the balance. A debit that would go below zero
// fails with ErrInsufficientPoints, a debit of an unknown user with NOT_FOUND.
func (u *Users) AdjustPoints(ctx context.Context, id string, delta int, now time.Time) (*domain.User, error) {
	upd, err := u.pointsUpdate(id, delta, now)
	if err != nil {
		return nil, err
	}

	out, err := u.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 upd.TableName,
		Key:                       upd.Key,
		UpdateExpression:          upd.UpdateExpression,
		ConditionExpression:       upd.ConditionExpression,
		ExpressionAttributeNames:  upd.ExpressionAttributeNames,
		ExpressionAttributeValues: upd.ExpressionAttributeValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			// either the user is missing or the balance is too low
			if _, getErr := u.Get(ctx, id); getErr != nil {
				if appErrors.IsNotFound(getErr) {
					return nil, getErr
				}
				return nil, errors.Join(classify(err, "failed to adjust points"), getErr)
			}
			return nil, repository.ErrInsufficientPoints
		}
		return nil, classify(err, "failed to adjust points")
	}
	return decodeUser(out.Attributes)
}

// pointsUpdate builds the balance update shared by AdjustPoints and the
// transactions. Debits require an existing user with a sufficient balance;
// credits create the user when needed.
func (u *Users) pointsUpdate(id string, delta int, now time.Time) (*types.Update, error) {
	update := expression.
		Add(expression.Name("points"), expression.Value(delta)).
		Add(expression.Name("version"), expression.Value(1)).
		Set(expression.Name("updatedAt"), expression.Value(now)).
		Set(expression.Name("createdAt"), expression.Name("createdAt").IfNotExists(expression.Value(now)))

	builder := expression.NewBuilder().WithUpdate(update)
	if delta < 0 {
		builder = builder.WithCondition(expression.AttributeExists(expression.Name("id")).
			And(expression.Name("points").GreaterThanEqual(expression.Value(-delta))))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, appErrors.NewInternal("failed to build points update", err)
	}
	return &types.Update{
		TableName:                 aws.String(u.tableName),
		Key:                       idKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}, nil
}

func decodeUser(attrs map[string]types.AttributeValue) (*domain.User, error) {
	var user domain.User
	if err := unmarshalItem(attrs, &user); err != nil {
		return nil, appErrors.NewInternal("failed to unmarshal user", err)
	}
	return &user, nil
}
