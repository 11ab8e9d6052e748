package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"imgmeta/internal/config"
	"imgmeta/internal/domain"
	"imgmeta/internal/port"
)

// API is the subset of the DynamoDB client used by the repository.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// item is the table representation of an image. created_at is stored as
// unix nanoseconds so it can serve as the UserIndex sort key.
type item struct {
	ImageID     string   `dynamodbav:"image_id"`
	UserID      string   `dynamodbav:"user_id"`
	Filename    string   `dynamodbav:"filename"`
	ContentType string   `dynamodbav:"content_type"`
	S3Key       string   `dynamodbav:"s3_key"`
	Tags        []string `dynamodbav:"tags"`
	Description string   `dynamodbav:"description"`
	CreatedAt   int64    `dynamodbav:"created_at"`
}

func toItem(img *domain.Image) item {
	tags := []string(img.Tags)
	if tags == nil {
		tags = []string{}
	}
	return item{
		ImageID:     img.ImageID,
		UserID:      img.UserID,
		Filename:    img.Filename,
		ContentType: img.ContentType,
		S3Key:       img.S3Key,
		Tags:        tags,
		Description: img.Description,
		CreatedAt:   img.CreatedAt.UnixNano(),
	}
}

func (it *item) toDomain() domain.Image {
	tags := domain.Tags(it.Tags)
	if tags == nil {
		tags = domain.Tags{}
	}
	return domain.Image{
		ImageID:     it.ImageID,
		UserID:      it.UserID,
		Filename:    it.Filename,
		ContentType: it.ContentType,
		S3Key:       it.S3Key,
		Tags:        tags,
		Description: it.Description,
		CreatedAt:   time.Unix(0, it.CreatedAt).UTC(),
	}
}

type imageRepo struct {
	client API
	table  string
	index  string
}

// NewClient builds a DynamoDB client for the configured region, pointing at a
// custom endpoint (e.g. DynamoDB Local) when one is set.
func NewClient(ctx context.Context, cfg *config.DynamoDBConfig) (*dynamodb.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	var opts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	return dynamodb.NewFromConfig(awsCfg, opts...), nil
}

// NewImageRepo creates a DynamoDB-backed ImageRepository.
func NewImageRepo(client API, cfg *config.DynamoDBConfig) port.ImageRepository {
	return &imageRepo{client: client, table: cfg.Table, index: cfg.UserIndex}
}

func idKey(imageID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"image_id": &types.AttributeValueMemberS{Value: imageID},
	}
}

func (r *imageRepo) Create(ctx context.Context, img *domain.Image) error {
	av, err := attributevalue.MarshalMap(toItem(img))
	if err != nil {
		return fmt.Errorf("dynamodb.Create: marshal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(image_id)"),
	})
	if err != nil {
		return fmt.Errorf("dynamodb.Create: %w", err)
	}
	return nil
}

func (r *imageRepo) GetByID(ctx context.Context, imageID string) (*domain.Image, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            idKey(imageID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb.GetByID: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, domain.ErrNotFound
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("dynamodb.GetByID: unmarshal: %w", err)
	}
	img := it.toDomain()
	return &img, nil
}

func nanos(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.UnixNano(), 10)}
}

func (r *imageRepo) buildQuery(q port.ListQuery) *dynamodb.QueryInput {
	keyCond := "user_id = :uid"
	values := map[string]types.AttributeValue{
		":uid": &types.AttributeValueMemberS{Value: q.UserID},
	}
	switch {
	case q.From != nil && q.To != nil:
		keyCond += " AND created_at BETWEEN :from AND :to"
		values[":from"] = nanos(*q.From)
		values[":to"] = nanos(*q.To)
	case q.From != nil:
		keyCond += " AND created_at >= :from"
		values[":from"] = nanos(*q.From)
	case q.To != nil:
		keyCond += " AND created_at <= :to"
		values[":to"] = nanos(*q.To)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.table),
		IndexName:                 aws.String(r.index),
		KeyConditionExpression:    aws.String(keyCond),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(int32(q.Limit + 1)),
	}
	if q.Tag != "" {
		input.FilterExpression = aws.String("contains(tags, :tag)")
		values[":tag"] = &types.AttributeValueMemberS{Value: q.Tag}
	}
	if q.After != nil {
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			"image_id":   &types.AttributeValueMemberS{Value: q.After.ImageID},
			"user_id":    &types.AttributeValueMemberS{Value: q.UserID},
			"created_at": nanos(q.After.CreatedAt),
		}
	}
	return input
}

// ListByUser queries the UserIndex newest first. A filtered query can return
// short pages, so it keeps following LastEvaluatedKey until it has one item
// more than the limit or the index is exhausted.
//
// Items sharing a created_at come back in whatever order the index holds
// them, not by image_id. The cursor resumes through ExclusiveStartKey, so
// paging still visits each item once.
func (r *imageRepo) ListByUser(ctx context.Context, q port.ListQuery) ([]domain.Image, string, error) {
	input := r.buildQuery(q)

	var candidates []domain.Image
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, "", fmt.Errorf("dynamodb.ListByUser: %w", err)
		}
		var items []item
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
			return nil, "", fmt.Errorf("dynamodb.ListByUser: unmarshal: %w", err)
		}
		for i := range items {
			candidates = append(candidates, items[i].toDomain())
			if len(candidates) > q.Limit {
				break
			}
		}
		if len(candidates) > q.Limit || len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	page, next := domain.PageOf(candidates, q.Limit)
	return page, next, nil
}

func (r *imageRepo) Delete(ctx context.Context, imageID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.table),
		Key:                 idKey(imageID),
		ConditionExpression: aws.String("attribute_exists(image_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("dynamodb.Delete: %w", err)
	}
	return nil
}

func (r *imageRepo) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	if err != nil {
		return fmt.Errorf("dynamodb.Ping: %w", err)
	}
	return nil
}
