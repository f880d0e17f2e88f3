package signature

import (
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
)

const testSecret = "app-secret"

func TestCompute_KnownVector(t *testing.T) {
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	got := Compute("key", []byte("The quick brown fox jumps over the lazy dog"))
	assert.Equal(t, "sha256=f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8", got)
}

func TestVerify(t *testing.T) {
	body := []byte(`{"object":"instagram","entry":[]}`)
	valid := Compute(testSecret, body)

	tests := []struct {
		name   string
		header string
		want   bool
	}{
		{name: "valid", header: valid, want: true},
		{name: "valid with surrounding whitespace", header: "  " + valid + "\t\n", want: true},
		{name: "empty header", header: "", want: false},
		{name: "whitespace only", header: "   ", want: false},
		{name: "missing prefix", header: valid[len(Prefix):], want: false},
		{name: "sha1 prefix", header: "sha1=" + valid[len(Prefix):], want: false},
		{name: "upper case prefix", header: "SHA256=" + valid[len(Prefix):], want: false},
		{name: "truncated", header: valid[:len(valid)-1], want: false},
		{name: "extended", header: valid + "0", want: false},
		{name: "prefix only", header: Prefix, want: false},
		{name: "not hex", header: Prefix + "zz", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Verify(testSecret, body, tt.header))
		})
	}
}

func TestVerify_SingleByteMutations(t *testing.T) {
	faker := gofakeit.New(42)

	for i := 0; i < 50; i++ {
		secret := faker.LetterN(uint(faker.IntRange(1, 40)))
		body := []byte(faker.Sentence(faker.IntRange(1, 30)))
		header := Compute(secret, body)

		if !Verify(secret, body, header) {
			t.Fatalf("round %d: signature of its own body rejected", i)
		}

		mutatedBody := append([]byte(nil), body...)
		pos := faker.IntRange(0, len(mutatedBody)-1)
		mutatedBody[pos] ^= 0x01
		assert.False(t, Verify(secret, mutatedBody, header), "round %d: mutated body accepted", i)

		mutatedSecret := []byte(secret)
		pos = faker.IntRange(0, len(mutatedSecret)-1)
		mutatedSecret[pos] ^= 0x01
		assert.False(t, Verify(string(mutatedSecret), body, header), "round %d: mutated secret accepted", i)
	}
}

func TestVerifier(t *testing.T) {
	body := []byte(`{"entry":[]}`)
	v := NewVerifier(testSecret)

	headers := make(http.Header)
	assert.ErrorIs(t, v.Verify(headers, body), ErrMissingSignature)

	headers.Set(Header, "sha256=deadbeef")
	assert.ErrorIs(t, v.Verify(headers, body), ErrInvalidSignature)

	headers.Set(Header, Compute(testSecret, body))
	assert.NoError(t, v.Verify(headers, body))
}
