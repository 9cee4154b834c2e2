package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/araozmd/ancdotario-user-service/internal/domain"
	"github.com/araozmd/ancdotario-user-service/internal/nickname"
)

// nicknameClaimPrefix namespaces the claim items that pin a normalized
// nickname to its owner. Identities come from the identity provider as
// opaque subjects, so the prefix cannot collide with a real identity.
const nicknameClaimPrefix = "NICKNAME#"

type userItem struct {
	Identity           string    `dynamodbav:"identity"`
	Nickname           string    `dynamodbav:"nickname"`
	NicknameNormalized string    `dynamodbav:"nickname_normalized"`
	ImageURL           string    `dynamodbav:"image_url,omitempty"`
	CreatedAt          time.Time `dynamodbav:"created_at"`
	UpdatedAt          time.Time `dynamodbav:"updated_at"`
}

type nicknameClaim struct {
	Identity string `dynamodbav:"identity"`
	Owner    string `dynamodbav:"owner_identity"`
}

func (i userItem) toDomain() *domain.User {
	return &domain.User{
		Identity:           i.Identity,
		Nickname:           i.Nickname,
		NicknameNormalized: i.NicknameNormalized,
		ImageURL:           i.ImageURL,
		CreatedAt:          i.CreatedAt,
		UpdatedAt:          i.UpdatedAt,
	}
}

// DynamoUserRepository stores user records in a single DynamoDB table.
// Each user owns two items: the record itself, keyed by identity, and a
// sparse nickname claim keyed by NICKNAME#<normalized>. Writing both in one
// transaction with attribute_not_exists conditions gives atomic uniqueness
// for identity and nickname without a pre-read.
type DynamoUserRepository struct {
	client        *dynamodb.Client
	table         string
	nicknameIndex string
}

func NewDynamoUserRepository(client *dynamodb.Client, table, nicknameIndex string) *DynamoUserRepository {
	return &DynamoUserRepository{
		client:        client,
		table:         table,
		nicknameIndex: nicknameIndex,
	}
}

func (r *DynamoUserRepository) Get(ctx context.Context, identity string) (*domain.User, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            identityKey(identity),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", identity, err)
	}
	if out.Item == nil {
		return nil, ErrUserNotFound
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal user %s: %w", identity, err)
	}
	return item.toDomain(), nil
}

func (r *DynamoUserRepository) GetByNickname(ctx context.Context, nick string) (*domain.User, error) {
	normalized := nickname.Normalize(nick)
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		IndexName:              aws.String(r.nicknameIndex),
		KeyConditionExpression: aws.String("nickname_normalized = :n"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberS{Value: normalized},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query nickname %s: %w", normalized, err)
	}
	if len(out.Items) == 0 {
		return nil, ErrUserNotFound
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("unmarshal user by nickname %s: %w", normalized, err)
	}
	return item.toDomain(), nil
}

func (r *DynamoUserRepository) CreateIfAbsent(ctx context.Context, identity, nick string) (*domain.User, error) {
	now := time.Now().UTC()
	record := userItem{
		Identity:           identity,
		Nickname:           nick,
		NicknameNormalized: nickname.Normalize(nick),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return nil, fmt.Errorf("marshal user %s: %w", identity, err)
	}
	claim, err := attributevalue.MarshalMap(nicknameClaim{
		Identity: nicknameClaimPrefix + record.NicknameNormalized,
		Owner:    identity,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal nickname claim: %w", err)
	}

	// The order of TransactItems is load-bearing: cancellation reasons come
	// back positionally, and the user item sits at index 0 so an existing
	// identity wins over a taken nickname when both conditions fail.
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(identity)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(r.table),
				Item:                claim,
				ConditionExpression: aws.String("attribute_not_exists(identity)"),
			}},
		},
	})
	if err != nil {
		if mapped := mapTransactionCancel(err); mapped != nil {
			return nil, mapped
		}
		return nil, fmt.Errorf("create user %s: %w", identity, err)
	}
	return record.toDomain(), nil
}

func (r *DynamoUserRepository) SetImageURL(ctx context.Context, identity, imageURL string) (*domain.User, error) {
	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 identityKey(identity),
		ConditionExpression: aws.String("attribute_exists(identity)"),
		ReturnValues:        types.ReturnValueAllNew,
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if imageURL == "" {
		input.UpdateExpression = aws.String("REMOVE image_url SET updated_at = :now")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now},
		}
	} else {
		input.UpdateExpression = aws.String("SET image_url = :url, updated_at = :now")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":url": &types.AttributeValueMemberS{Value: imageURL},
			":now": &types.AttributeValueMemberS{Value: now},
		}
	}

	out, err := r.client.UpdateItem(ctx, input)
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update image url for %s: %w", identity, err)
	}
	var item userItem
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, fmt.Errorf("unmarshal updated user %s: %w", identity, err)
	}
	return item.toDomain(), nil
}

func (r *DynamoUserRepository) Delete(ctx context.Context, identity string) (*domain.User, error) {
	// Read first so the deleted record can be returned; the conditional
	// delete below still decides the outcome if the record vanishes in
	// between.
	user, err := r.Get(ctx, identity)
	if err != nil {
		return nil, err
	}

	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(r.table),
				Key:                 identityKey(identity),
				ConditionExpression: aws.String("attribute_exists(identity)"),
			}},
			{Delete: &types.Delete{
				TableName: aws.String(r.table),
				Key:       identityKey(nicknameClaimPrefix + user.NicknameNormalized),
			}},
		},
	})
	if err != nil {
		if transactionConditionFailed(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("delete user %s: %w", identity, err)
	}
	return user, nil
}

func identityKey(identity string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"identity": &types.AttributeValueMemberS{Value: identity},
	}
}

// mapTransactionCancel translates a cancelled create transaction into the
// repository sentinels using the positional cancellation reasons. Returns
// nil when the error is not a cancellation or no condition failed.
func mapTransactionCancel(err error) error {
	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return nil
	}
	for i, reason := range cancelled.CancellationReasons {
		if reason.Code == nil || *reason.Code != "ConditionalCheckFailed" {
			continue
		}
		if i == 0 {
			return ErrUserExists
		}
		return ErrNicknameTaken
	}
	return nil
}

func transactionConditionFailed(err error) bool {
	var cancelled *types.TransactionCanceledException
	if !errors.As(err, &cancelled) {
		return false
	}
	for _, reason := range cancelled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
