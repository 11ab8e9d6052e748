package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"imgmeta/internal/config"
	"imgmeta/internal/domain"
	"imgmeta/internal/port"
	"imgmeta/internal/repository/memory"
	"imgmeta/internal/service"
	"imgmeta/mocks"
)

var (
	s3Cfg   = &config.S3Config{Bucket: "bucket", UploadExpiry: 900, DownloadExpiry: 300}
	listCfg = &config.ListConfig{DefaultLimit: 10, MaxLimit: 100}
)

// stepClock returns strictly increasing timestamps, one second apart.
func stepClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func permissiveStorage() *mocks.MockObjectStorage {
	storage := new(mocks.MockObjectStorage)
	storage.On("PresignPut", mock.Anything, mock.Anything, mock.Anything, 900*time.Second).
		Return("https://upload.example/put", time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil).Maybe()
	storage.On("PresignGet", mock.Anything, mock.Anything, 300*time.Second).
		Return("https://download.example/get", nil).Maybe()
	storage.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
	storage.On("Upload", mock.Anything, mock.Anything).Return(nil).Maybe()
	return storage
}

func newMemoryService(storage port.ObjectStorage) (service.ImageService, port.ImageRepository) {
	repo := memory.NewImageRepo()
	svc := service.NewImageService(repo, storage, s3Cfg, listCfg,
		service.WithClock(stepClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))))
	return svc, repo
}

func smokeInput() service.CreateImageInput {
	return service.CreateImageInput{
		UserID:      "u1",
		Filename:    "pic.jpg",
		ContentType: "image/jpeg",
		Tags:        []string{"vacation", "test"},
		Description: "Testing upload",
	}
}

func TestImageService_Create_Success(t *testing.T) {
	storage := permissiveStorage()
	svc, repo := newMemoryService(storage)

	created, err := svc.Create(context.Background(), smokeInput())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ImageID)
	assert.Equal(t, "images/"+created.ImageID, created.S3Key)
	assert.Equal(t, "https://upload.example/put", created.UploadURL)
	assert.False(t, created.UploadExpiresAt.IsZero())
	assert.Equal(t, domain.Tags{"vacation", "test"}, created.Tags)
	assert.Equal(t, time.UTC, created.CreatedAt.Location())

	stored, err := repo.GetByID(context.Background(), created.ImageID)
	require.NoError(t, err)
	assert.Equal(t, created.Image.S3Key, stored.S3Key)
	assert.Equal(t, "Testing upload", stored.Description)

	storage.AssertCalled(t, "PresignPut", mock.Anything, created.S3Key, "image/jpeg", 900*time.Second)
}

func TestImageService_Create_UniqueIDs(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		created, err := svc.Create(context.Background(), smokeInput())
		require.NoError(t, err)
		assert.False(t, seen[created.ImageID], "duplicate id %s", created.ImageID)
		seen[created.ImageID] = true
	}
}

func TestImageService_Create_NilTagsBecomeEmpty(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	in := smokeInput()
	in.Tags = nil

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.NotNil(t, created.Tags)
	assert.Empty(t, created.Tags)
}

func TestImageService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*service.CreateImageInput)
	}{
		{"missing user", func(in *service.CreateImageInput) { in.UserID = "" }},
		{"blank user", func(in *service.CreateImageInput) { in.UserID = "   " }},
		{"nul in user", func(in *service.CreateImageInput) { in.UserID = "a\x00b" }},
		{"newline in user", func(in *service.CreateImageInput) { in.UserID = "a\nb" }},
		{"missing filename", func(in *service.CreateImageInput) { in.Filename = "" }},
		{"missing content type", func(in *service.CreateImageInput) { in.ContentType = "" }},
		{"bad content type", func(in *service.CreateImageInput) { in.ContentType = "not a type" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockImageRepo)
			storage := new(mocks.MockObjectStorage)
			svc := service.NewImageService(repo, storage, s3Cfg, listCfg)

			in := smokeInput()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)

			assert.True(t, errors.Is(err, domain.ErrValidation))
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			storage.AssertNotCalled(t, "PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestImageService_Create_StoreFailureReturnsNoURL(t *testing.T) {
	repo := new(mocks.MockImageRepo)
	storage := permissiveStorage()
	svc := service.NewImageService(repo, storage, s3Cfg, listCfg)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Image")).Return(errors.New("table unavailable"))

	created, err := svc.Create(context.Background(), smokeInput())
	assert.Nil(t, created)
	assert.True(t, errors.Is(err, domain.ErrStore))
	repo.AssertExpectations(t)
}

func TestImageService_Create_PresignFailure(t *testing.T) {
	repo := new(mocks.MockImageRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewImageService(repo, storage, s3Cfg, listCfg)

	storage.On("PresignPut", mock.Anything, mock.Anything, "image/jpeg", 900*time.Second).
		Return("", nil, errors.New("no credentials"))

	_, err := svc.Create(context.Background(), smokeInput())
	assert.True(t, errors.Is(err, domain.ErrStore))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestImageService_Create_TruncatesToMicroseconds(t *testing.T) {
	repo := memory.NewImageRepo()
	svc := service.NewImageService(repo, permissiveStorage(), s3Cfg, listCfg,
		service.WithClock(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 123456789, time.UTC) }))

	created, err := svc.Create(context.Background(), smokeInput())
	require.NoError(t, err)
	assert.Equal(t, 123456000, created.CreatedAt.Nanosecond())
}

func TestImageService_GetRoundTrip(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())

	created, err := svc.Create(context.Background(), smokeInput())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ImageID)
	require.NoError(t, err)
	assert.Equal(t, created.Image, got.Image)
	assert.Equal(t, "https://download.example/get", got.DownloadURL)
}

func TestImageService_Get_NotFound(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	_, err := svc.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestImageService_Get_EmptyID(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	_, err := svc.Get(context.Background(), " ")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestImageService_Get_StoreFailure(t *testing.T) {
	repo := new(mocks.MockImageRepo)
	svc := service.NewImageService(repo, permissiveStorage(), s3Cfg, listCfg)
	repo.On("GetByID", mock.Anything, "a").Return(nil, errors.New("timeout"))

	_, err := svc.Get(context.Background(), "a")
	assert.True(t, errors.Is(err, domain.ErrStore))
}

// Metadata may exist without a blob: reads still succeed.
func TestImageService_Get_OrphanMetadata(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://upload.example/put", time.Now(), nil)
	storage.On("PresignGet", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("presign failed"))
	svc, _ := newMemoryService(storage)

	created, err := svc.Create(context.Background(), smokeInput())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ImageID)
	require.NoError(t, err)
	assert.Equal(t, created.ImageID, got.ImageID)
	assert.Empty(t, got.DownloadURL)

	page, err := svc.List(context.Background(), service.ListImagesInput{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Empty(t, page.Items[0].DownloadURL)
}

func TestImageService_List_OrderAndOwnership(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	ctx := context.Background()

	var u1 []string
	for i := 0; i < 3; i++ {
		created, err := svc.Create(ctx, smokeInput())
		require.NoError(t, err)
		u1 = append(u1, created.ImageID)
	}
	other := smokeInput()
	other.UserID = "u2"
	_, err := svc.Create(ctx, other)
	require.NoError(t, err)

	page, err := svc.List(ctx, service.ListImagesInput{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Empty(t, page.NextCursor)

	// Created one second apart by the step clock; newest first.
	assert.Equal(t, u1[2], page.Items[0].ImageID)
	assert.Equal(t, u1[1], page.Items[1].ImageID)
	assert.Equal(t, u1[0], page.Items[2].ImageID)
	for _, item := range page.Items {
		assert.Equal(t, "u1", item.UserID)
	}
}

func TestImageService_List_PaginationCoversAll(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	ctx := context.Background()

	want := map[string]bool{}
	for i := 0; i < 25; i++ {
		created, err := svc.Create(ctx, smokeInput())
		require.NoError(t, err)
		want[created.ImageID] = true
	}

	got := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := svc.List(ctx, service.ListImagesInput{UserID: "u1", Limit: 10, Cursor: cursor})
		require.NoError(t, err)
		pages++
		for _, item := range page.Items {
			assert.False(t, got[item.ImageID], "image %s seen twice", item.ImageID)
			got[item.ImageID] = true
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, want, got)
}

func TestImageService_List_Validation(t *testing.T) {
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input service.ListImagesInput
	}{
		{"missing user", service.ListImagesInput{Limit: 10}},
		{"nul in user", service.ListImagesInput{UserID: "a\x00", Limit: 10}},
		{"zero limit", service.ListImagesInput{UserID: "u1", Limit: 0}},
		{"negative limit", service.ListImagesInput{UserID: "u1", Limit: -1}},
		{"bad cursor", service.ListImagesInput{UserID: "u1", Limit: 10, Cursor: "%%%"}},
		{"inverted range", service.ListImagesInput{UserID: "u1", Limit: 10, From: &from, To: &to}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mocks.MockImageRepo)
			svc := service.NewImageService(repo, new(mocks.MockObjectStorage), s3Cfg, listCfg)

			_, err := svc.List(context.Background(), tt.input)
			assert.True(t, errors.Is(err, domain.ErrValidation))
			repo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
		})
	}
}

func TestImageService_List_ClampsLimit(t *testing.T) {
	repo := new(mocks.MockImageRepo)
	svc := service.NewImageService(repo, permissiveStorage(), s3Cfg, listCfg)

	repo.On("ListByUser", mock.Anything, mock.MatchedBy(func(q port.ListQuery) bool {
		return q.UserID == "u1" && q.Limit == 100
	})).Return([]domain.Image{}, "", nil)

	page, err := svc.List(context.Background(), service.ListImagesInput{UserID: "u1", Limit: 5000})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	repo.AssertExpectations(t)
}

func TestImageService_List_StoreFailure(t *testing.T) {
	repo := new(mocks.MockImageRepo)
	svc := service.NewImageService(repo, permissiveStorage(), s3Cfg, listCfg)
	repo.On("ListByUser", mock.Anything, mock.Anything).Return(nil, "", errors.New("throttled"))

	_, err := svc.List(context.Background(), service.ListImagesInput{UserID: "u1", Limit: 10})
	assert.True(t, errors.Is(err, domain.ErrStore))
}

func TestImageService_List_TagFilter(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	ctx := context.Background()

	in := smokeInput()
	in.Tags = []string{"sun"}
	sunny, err := svc.Create(ctx, in)
	require.NoError(t, err)
	in.Tags = []string{"rain"}
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	page, err := svc.List(ctx, service.ListImagesInput{UserID: "u1", Limit: 10, Tag: "sun"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, sunny.ImageID, page.Items[0].ImageID)
}

func TestImageService_Delete_ThenGet(t *testing.T) {
	storage := permissiveStorage()
	svc, _ := newMemoryService(storage)
	ctx := context.Background()

	created, err := svc.Create(ctx, smokeInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ImageID))
	storage.AssertCalled(t, "Delete", mock.Anything, created.S3Key)

	_, err = svc.Get(ctx, created.ImageID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestImageService_Delete_Twice(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	ctx := context.Background()

	created, err := svc.Create(ctx, smokeInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ImageID))
	assert.True(t, errors.Is(svc.Delete(ctx, created.ImageID), domain.ErrNotFound))
}

func TestImageService_Delete_BlobFailureStillSucceeds(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://upload.example/put", time.Now(), nil)
	storage.On("Delete", mock.Anything, mock.Anything).Return(errors.New("access denied"))
	svc, repo := newMemoryService(storage)
	ctx := context.Background()

	created, err := svc.Create(ctx, smokeInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ImageID))
	_, err = repo.GetByID(ctx, created.ImageID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestImageService_Delete_MetadataFailureKeepsBlob(t *testing.T) {
	repo := new(mocks.MockImageRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewImageService(repo, storage, s3Cfg, listCfg)

	img := &domain.Image{ImageID: "a", S3Key: "images/a"}
	repo.On("GetByID", mock.Anything, "a").Return(img, nil)
	repo.On("Delete", mock.Anything, "a").Return(errors.New("throttled"))

	err := svc.Delete(context.Background(), "a")
	assert.True(t, errors.Is(err, domain.ErrStore))
	storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestImageService_Delete_LostRace(t *testing.T) {
	repo := new(mocks.MockImageRepo)
	storage := new(mocks.MockObjectStorage)
	svc := service.NewImageService(repo, storage, s3Cfg, listCfg)

	repo.On("GetByID", mock.Anything, "a").Return(&domain.Image{ImageID: "a", S3Key: "images/a"}, nil)
	repo.On("Delete", mock.Anything, "a").Return(domain.ErrNotFound)

	err := svc.Delete(context.Background(), "a")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	storage.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestImageService_Export(t *testing.T) {
	svc := service.NewImageService(memory.NewImageRepo(), permissiveStorage(), s3Cfg,
		&config.ListConfig{DefaultLimit: 2, MaxLimit: 2},
		service.WithClock(stepClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, smokeInput())
		require.NoError(t, err)
	}

	all, err := svc.Export(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i-1].CreatedAt.After(all[i].CreatedAt))
	}

	none, err := svc.Export(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.Export(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestImageService_Import(t *testing.T) {
	storage := permissiveStorage()
	svc, repo := newMemoryService(storage)

	img, err := svc.Import(context.Background(), service.ImportImageInput{
		CreateImageInput: smokeInput(),
		Body:             strings.NewReader("jpeg bytes"),
		Size:             10,
	})
	require.NoError(t, err)

	storage.AssertCalled(t, "Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Key == img.S3Key && in.ContentType == "image/jpeg" && in.Size == 10
	}))
	_, err = repo.GetByID(context.Background(), img.ImageID)
	assert.NoError(t, err)
}

func TestImageService_Import_UploadFailureRollsBack(t *testing.T) {
	storage := new(mocks.MockObjectStorage)
	storage.On("PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("https://upload.example/put", time.Now(), nil)
	storage.On("Upload", mock.Anything, mock.Anything).Return(errors.New("connection reset"))
	svc, repo := newMemoryService(storage)
	ctx := context.Background()

	_, err := svc.Import(ctx, service.ImportImageInput{
		CreateImageInput: smokeInput(),
		Body:             strings.NewReader("jpeg bytes"),
	})
	assert.True(t, errors.Is(err, domain.ErrStore))

	page, _, err := repo.ListByUser(ctx, port.ListQuery{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestImageService_Import_RequiresBody(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	_, err := svc.Import(context.Background(), service.ImportImageInput{CreateImageInput: smokeInput()})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

// The four-call round trip a deployed stack is smoke-tested with.
func TestImageService_SmokeScenario(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	ctx := context.Background()

	created, err := svc.Create(ctx, smokeInput())
	require.NoError(t, err)
	require.NotEmpty(t, created.ImageID)
	require.NotEmpty(t, created.UploadURL)
	require.NotEmpty(t, created.S3Key)

	page, err := svc.List(ctx, service.ListImagesInput{UserID: "u1", Limit: 10})
	require.NoError(t, err)
	found := false
	for _, item := range page.Items {
		found = found || item.ImageID == created.ImageID
	}
	assert.True(t, found)

	got, err := svc.Get(ctx, created.ImageID)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "pic.jpg", got.Filename)
	assert.Equal(t, "image/jpeg", got.ContentType)
	assert.Equal(t, domain.Tags{"vacation", "test"}, got.Tags)
	assert.Equal(t, "Testing upload", got.Description)

	require.NoError(t, svc.Delete(ctx, created.ImageID))

	_, err = svc.Get(ctx, created.ImageID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestImageService_UserIDsSharingAPrefixStayApart(t *testing.T) {
	svc, _ := newMemoryService(permissiveStorage())
	ctx := context.Background()

	mine, err := svc.Create(ctx, service.CreateImageInput{UserID: "a", Filename: "a.jpg", ContentType: "image/jpeg"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, service.CreateImageInput{UserID: "a\x00b", Filename: "b.jpg", ContentType: "image/jpeg"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	page, err := svc.List(ctx, service.ListImagesInput{UserID: "a", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.ImageID, page.Items[0].ImageID)

	_, err = svc.Export(ctx, "a\x00b")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}
