package storage

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// DBTestSuite provides a test suite for preference storage
type DBTestSuite struct {
	suite.Suite
	db *DB
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) TestStringMissingKey() {
	_, err := suite.db.Preferences("APP_PREFS").String("AUTH_HEADER")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestPutStringOverwrites() {
	prefs := suite.db.Preferences("APP_PREFS")

	require.NoError(suite.T(), prefs.PutString("AUTH_HEADER", "first"))
	require.NoError(suite.T(), prefs.PutString("AUTH_HEADER", "second"))

	got, err := prefs.String("AUTH_HEADER")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "second", got)

	keys, err := prefs.Keys()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"AUTH_HEADER"}, keys)
}

func (suite *DBTestSuite) TestNamespacesAreIsolated() {
	a := suite.db.Preferences("A")
	b := suite.db.Preferences("B")

	require.NoError(suite.T(), a.PutString("k", "from-a"))

	_, err := b.String("k")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestIntDefaultAndRoundTrip() {
	prefs := suite.db.Preferences("APP_PREFS")

	id, err := prefs.Int("USER_ID", -1)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(-1), id)

	require.NoError(suite.T(), prefs.PutInt("USER_ID", 42))
	id, err = prefs.Int("USER_ID", -1)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(42), id)
}

func (suite *DBTestSuite) TestRemove() {
	prefs := suite.db.Preferences("APP_PREFS")
	require.NoError(suite.T(), prefs.PutString("AUTH_HEADER", "token"))

	require.NoError(suite.T(), prefs.Remove("AUTH_HEADER"))
	require.NoError(suite.T(), prefs.Remove("AUTH_HEADER"), "removing a missing key should succeed")

	_, err := prefs.String("AUTH_HEADER")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCredentialStoreToken() {
	store := NewCredentialStore(suite.db)

	_, ok, err := store.AuthHeader()
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	require.NoError(suite.T(), store.SetAuthHeader("Bearer abc"))
	token, ok, err := store.AuthHeader()
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "Bearer abc", token)

	require.NoError(suite.T(), store.ClearAuthHeader())
	_, ok, err = store.AuthHeader()
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}

func (suite *DBTestSuite) TestCredentialStoreReadsPersistedToken() {
	require.NoError(suite.T(), suite.db.Preferences(PrefsNamespace).PutString(KeyAuthHeader, "Basic xyz"))

	token, ok, err := NewCredentialStore(suite.db).AuthHeader()
	require.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
	assert.Equal(suite.T(), "Basic xyz", token)
}

func (suite *DBTestSuite) TestCredentialStoreUserID() {
	store := NewCredentialStore(suite.db)

	id, err := store.UserID()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), NoUserID, id)

	require.NoError(suite.T(), store.SetUserID(9))
	id, err = store.UserID()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(9), id)
}

func (suite *DBTestSuite) TestCredentialStoreStoredKeys() {
	store := NewCredentialStore(suite.db)

	keys, err := store.StoredKeys()
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), keys)

	require.NoError(suite.T(), store.SetUserID(3))
	require.NoError(suite.T(), store.SetAuthHeader("Bearer abc"))
	keys, err = store.StoredKeys()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{KeyAuthHeader, KeyUserID}, keys)

	require.NoError(suite.T(), store.ClearAuthHeader())
	keys, err = store.StoredKeys()
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{KeyUserID}, keys)
}

func (suite *DBTestSuite) TestCredentialStoreConcurrentReads() {
	store := NewCredentialStore(suite.db)
	require.NoError(suite.T(), store.SetAuthHeader("Bearer shared"))

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := store.AuthHeader(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(suite.T(), err)
	}
}

// TestDBTestSuite runs the test suite
func TestDBTestSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSealedPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sealed.db")

	sealer, err := NewSealer("correct horse")
	require.NoError(t, err)

	db, err := NewDB(path)
	require.NoError(t, err)
	db.WithSealer(sealer)
	require.NoError(t, NewCredentialStore(db).SetAuthHeader("Bearer secret"))

	var raw string
	require.NoError(t, db.conn.QueryRow("SELECT value FROM preferences WHERE key = ?", KeyAuthHeader).Scan(&raw))
	assert.True(t, strings.HasPrefix(raw, "v1:"))
	assert.NotContains(t, raw, "secret")
	require.NoError(t, db.Close())

	// Reopen with the same key
	db, err = NewDB(path)
	require.NoError(t, err)
	db.WithSealer(sealer)
	token, ok, err := NewCredentialStore(db).AuthHeader()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bearer secret", token)
	require.NoError(t, db.Close())

	// Reopen with the wrong key
	other, err := NewSealer("wrong key")
	require.NoError(t, err)
	db, err = NewDB(path)
	require.NoError(t, err)
	defer db.Close()
	db.WithSealer(other)
	_, _, err = NewCredentialStore(db).AuthHeader()
	assert.ErrorIs(t, err, ErrSealedValue)
}

func TestSealerPassesThroughPlainValues(t *testing.T) {
	sealer, err := NewSealer("k")
	require.NoError(t, err)

	got, err := sealer.Open("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", got)

	_, err = NewSealer("")
	assert.Error(t, err)
}
