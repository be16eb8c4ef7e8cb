package generates

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewAttemptGenerate create to generate the attempt id instance
func NewAttemptGenerate() *AttemptGenerate {
	return &AttemptGenerate{now: time.Now}
}

// AttemptGenerate generate opaque reset attempt ids
type AttemptGenerate struct {
	now func() time.Time
}

// Token based on the UUID generated id, salted with the creation time
func (ag *AttemptGenerate) Token(_ context.Context) (string, error) {
	seed, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	salt := strconv.FormatInt(ag.now().UnixNano(), 10)
	return generateBase64(seed, []byte(salt)), nil
}

func generateBase64(seed uuid.UUID, salt []byte) string {
	id := uuid.NewSHA1(seed, salt)
	data := base64.RawURLEncoding.EncodeToString(id[:])
	return strings.ToUpper(data)
}

func init() {
	uuid.EnableRandPool()
}
