package domain

const objectKeyPrefix = "images/"

// ObjectKey derives the blob store key of an image from its identifier alone.
func ObjectKey(imageID string) string {
	return objectKeyPrefix + imageID
}
