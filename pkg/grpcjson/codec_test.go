package grpcjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(Name)
	require.NotNil(t, c)
	assert.Equal(t, "json", c.Name())
}

func TestCodecRoundTrip(t *testing.T) {
	type msg struct {
		Score int `json:"score"`
	}
	raw, err := Codec{}.Marshal(msg{Score: 820})
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":820}`, string(raw))

	var out msg
	require.NoError(t, Codec{}.Unmarshal(raw, &out))
	assert.Equal(t, 820, out.Score)
}
