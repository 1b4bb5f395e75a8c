package telegram

import (
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken   = "BOT:TOKEN123"
	anaUser     = `{"id":42,"first_name":"Ana"}`
	anaExpected = "cb6aee5ddd8ad7f21a3b957bb8cbc4fc711f6940a14f606ec3996398b9159bf6"
)

func anaInitData(hash string) string {
	vals := url.Values{}
	vals.Set("auth_date", "1700000000")
	vals.Set("user", anaUser)
	vals.Set("hash", hash)
	return vals.Encode()
}

func TestVerify_KnownVector(t *testing.T) {
	pairs := Pairs{{"auth_date", "1700000000"}, {"user", anaUser}}
	require.Equal(t, "auth_date=1700000000\nuser="+anaUser, pairs.CheckString())
	require.Equal(t, anaExpected, Sign(pairs, testToken))

	id, err := NewVerifier(testToken).Verify(anaInitData(anaExpected))
	require.NoError(t, err)

	assert.Equal(t, "42", id.UserID)
	assert.Equal(t, "Ana", id.DisplayName)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), id.AuthDate)
}

func TestVerify_TruncatedHash(t *testing.T) {
	_, err := NewVerifier(testToken).Verify(anaInitData(anaExpected[:len(anaExpected)-1]))
	assert.ErrorIs(t, err, ErrSignatureMismatch)
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestVerify_AlteredHash(t *testing.T) {
	v := NewVerifier(testToken)
	for i := range anaExpected {
		b := []byte(anaExpected)
		if b[i] == '0' {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		_, err := v.Verify(anaInitData(string(b)))
		require.ErrorIs(t, err, ErrSignatureMismatch, "position %d", i)
	}
}

func TestVerify_UppercaseHashRejected(t *testing.T) {
	_, err := NewVerifier(testToken).Verify(anaInitData(strings.ToUpper(anaExpected)))
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerify_WrongToken(t *testing.T) {
	_, err := NewVerifier("BOT:OTHER").Verify(anaInitData(anaExpected))
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerify_MissingHash(t *testing.T) {
	vals := url.Values{}
	vals.Set("auth_date", "1700000000")
	vals.Set("user", anaUser)

	_, err := NewVerifier(testToken).Verify(vals.Encode())
	assert.ErrorIs(t, err, ErrMissingSignature)
}

func TestVerify_MalformedUser(t *testing.T) {
	pairs := Pairs{{"auth_date", "1700000000"}, {"user", "not-json"}}

	_, err := NewVerifier(testToken).Verify(SignedInitData(pairs, testToken))
	assert.ErrorIs(t, err, ErrMalformedUserRecord)
}

func TestVerify_UserWithoutID(t *testing.T) {
	pairs := Pairs{{"user", `{"first_name":"Ana"}`}}

	_, err := NewVerifier(testToken).Verify(SignedInitData(pairs, testToken))
	assert.ErrorIs(t, err, ErrMalformedUserRecord)
}

func TestVerify_UserTrailingData(t *testing.T) {
	v := NewVerifier(testToken)
	for _, raw := range []string{
		`{"id":1,"first_name":"A"}}`,
		`{"id":1,"first_name":"A"}]`,
		`{"id":1,"first_name":"A"} {"id":2}`,
		`{"id":1,"first_name":"A"} x`,
	} {
		pairs := Pairs{{"auth_date", "1700000000"}, {"user", raw}}
		_, err := v.Verify(SignedInitData(pairs, testToken))
		assert.ErrorIs(t, err, ErrMalformedUserRecord, raw)
	}

	pairs := Pairs{{"user", `{"id":1,"first_name":"A"}` + "\n"}}
	_, err := v.Verify(SignedInitData(pairs, testToken))
	assert.NoError(t, err)
}

func TestVerify_MissingUser(t *testing.T) {
	pairs := Pairs{{"auth_date", "1700000000"}, {"query_id", "AAH"}}

	_, err := NewVerifier(testToken).Verify(SignedInitData(pairs, testToken))
	assert.ErrorIs(t, err, ErrMissingUserRecord)
}

func TestVerify_TamperedField(t *testing.T) {
	initData := SignedInitData(Pairs{{"auth_date", "1700000000"}, {"user", anaUser}}, testToken)

	_, err := NewVerifier(testToken).Verify(initData + "&x=1")
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestVerify_DuplicateKey(t *testing.T) {
	initData := anaInitData(anaExpected) + "&auth_date=1700000001"

	_, err := NewVerifier(testToken).Verify(initData)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestVerify_BadEscape(t *testing.T) {
	_, err := NewVerifier(testToken).Verify("user=%zz&hash=00")
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestVerify_FullUserRecord(t *testing.T) {
	pairs := Pairs{
		{"query_id", "AAHdF6IQAAAAAN0XohDhrOrc"},
		{"user", `{"id":279058397,"first_name":"Vladislav","last_name":"Kibenko","username":"vdkfrost","language_code":"ru","is_premium":true}`},
		{"auth_date", "1662771648"},
	}

	id, err := NewVerifier(testToken).Verify(SignedInitData(pairs, testToken))
	require.NoError(t, err)

	assert.Equal(t, "279058397", id.UserID)
	assert.Equal(t, "Vladislav Kibenko", id.DisplayName)
	assert.Equal(t, "vdkfrost", id.Username)
	assert.True(t, id.User.IsPremium)
}

func TestCheckString_OrderIndependent(t *testing.T) {
	a := Pairs{{"auth_date", "1"}, {"query_id", "q"}, {"user", anaUser}, {"chat_type", "private"}}
	b := Pairs{{"user", anaUser}, {"chat_type", "private"}, {"auth_date", "1"}, {"query_id", "q"}}

	assert.Equal(t, a.CheckString(), b.CheckString())
	assert.Equal(t, Sign(a, testToken), Sign(b, testToken))

	v := NewVerifier(testToken)
	hash := Sign(a, testToken)
	for _, p := range []Pairs{a, b} {
		withHash := append(Pairs{{"hash", hash}}, p...)
		_, err := v.Verify(withHash.Encode())
		assert.NoError(t, err)
	}
}

func TestCheckString_ByteOrder(t *testing.T) {
	p := Pairs{{"b", "2"}, {"B", "1"}, {"a_b", "3"}, {"ab", "4"}}
	assert.Equal(t, "B=1\na_b=3\nab=4\nb=2", p.CheckString())
}

func TestParsePairs_FormDecoding(t *testing.T) {
	p, err := ParsePairs("a=x+y&b=%7B%22id%22%3A1%7D&&c")
	require.NoError(t, err)

	assert.Equal(t, Pairs{{"a", "x y"}, {"b", `{"id":1}`}, {"c", ""}}, p)
}

func TestVerify_Concurrent(t *testing.T) {
	v := NewVerifier(testToken)
	good := anaInitData(anaExpected)
	bad := anaInitData(anaExpected[:10])

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := v.Verify(good)
				assert.NoError(t, err)
			} else {
				_, err := v.Verify(bad)
				assert.ErrorIs(t, err, ErrSignatureMismatch)
			}
		}(i)
	}
	wg.Wait()
}

func TestCheckFreshness(t *testing.T) {
	now := time.Unix(1700003600, 0)
	id := &Identity{AuthDate: time.Unix(1700000000, 0)}

	assert.NoError(t, CheckFreshness(id, now, time.Hour))
	assert.ErrorIs(t, CheckFreshness(id, now.Add(time.Second), time.Hour), ErrStale)
	assert.NoError(t, CheckFreshness(id, now.Add(time.Hour*24), 0))
	assert.ErrorIs(t, CheckFreshness(&Identity{}, now, time.Hour), ErrStale)

	future := &Identity{AuthDate: now.Add(10 * time.Minute)}
	assert.ErrorIs(t, CheckFreshness(future, now, time.Hour), ErrStale)
}

func TestReason(t *testing.T) {
	assert.Equal(t, "signature_mismatch", Reason(ErrSignatureMismatch))
	assert.Equal(t, "malformed_payload", Reason(ErrMalformedPayload))
	assert.Equal(t, "ok", Reason(nil))
}
