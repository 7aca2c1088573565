package container

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstack-cloud/celerity-core/pkg/provider"
	"github.com/newstack-cloud/celerity-core/pkg/token"
)

type database struct {
	id int
}

type repository struct {
	db *database
}

var dbCounter int

func newDatabase() *database {
	dbCounter++
	return &database{id: dbCounter}
}

func newRepository(db *database) *repository {
	return &repository{db: db}
}

func TestResolve_LazySingleton(t *testing.T) {
	dbCounter = 0
	c := New()
	dbTok := token.ForClass[*database]()
	c.Register(dbTok, provider.NewClassProvider(dbTok, provider.NewConstructor(newDatabase), nil))

	ctx := context.Background()
	a, err := c.Resolve(ctx, dbTok)
	require.NoError(t, err)
	b, err := c.Resolve(ctx, dbTok)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, dbCounter, "constructor must run exactly once")
}

func TestResolve_ClassDependencyChain(t *testing.T) {
	c := New()
	dbTok := token.ForClass[*database]()
	repoTok := token.ForClass[*repository]()
	c.Register(dbTok, provider.NewClassProvider(dbTok, provider.NewConstructor(newDatabase), nil))
	c.Register(repoTok, provider.NewClassProvider(repoTok, provider.NewConstructor(newRepository), nil))

	v, err := c.Resolve(context.Background(), repoTok)
	require.NoError(t, err)

	repo, ok := v.(*repository)
	require.True(t, ok)
	require.NotNil(t, repo.db)

	deps := c.GetDependencies(repoTok)
	require.Len(t, deps, 1)
	assert.Equal(t, dbTok, deps[0])
}

func TestResolve_ImplicitZeroArgClass(t *testing.T) {
	c := New()
	type plain struct{ N int }
	tok := token.ForClass[*plain]()

	v, err := c.Resolve(context.Background(), tok)
	require.NoError(t, err)
	_, ok := v.(*plain)
	assert.True(t, ok)
}

func TestResolve_NotInjectableWithoutProvider(t *testing.T) {
	type needsArgs struct{ n int }
	ctor := provider.NewConstructor(func(db *database) *needsArgs { return &needsArgs{n: db.id} }).MarkNotInjectable()
	RegisterClassDescriptor(ctor)

	c := New()
	tok := token.ForClass[*needsArgs]()

	_, err := c.Resolve(context.Background(), tok)
	require.Error(t, err)

	var notInjectable *NotInjectableError
	require.ErrorAs(t, err, &notInjectable)
	assert.True(t, errors.Is(err, ErrNotInjectable))
}

func TestResolve_CircularDependency(t *testing.T) {
	type a struct{}
	type b struct{}
	aTok := token.ForClass[*a]()
	bTok := token.ForClass[*b]()

	c := New()
	c.Register(aTok, provider.NewFactoryProvider(aTok, []token.Token{bTok}, func(args []any) (any, error) {
		return &a{}, nil
	}, nil))
	c.Register(bTok, provider.NewFactoryProvider(bTok, []token.Token{aTok}, func(args []any) (any, error) {
		return &b{}, nil
	}, nil))

	_, err := c.Resolve(context.Background(), aTok)
	require.Error(t, err)

	var cycleErr *CircularDependencyError
	require.ErrorAs(t, err, &cycleErr)
	assert.True(t, errors.Is(err, ErrCircularDependency))
	assert.Contains(t, cycleErr.Error(), "circular dependency")
}

func TestResolve_NoProviderForUnknownName(t *testing.T) {
	c := New()
	_, err := c.Resolve(context.Background(), token.Name("MISSING"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoProvider))
}

func TestResolve_ConcurrentResolutionCollapses(t *testing.T) {
	dbCounter = 0
	c := New()
	dbTok := token.ForClass[*database]()
	c.Register(dbTok, provider.NewClassProvider(dbTok, provider.NewConstructor(func() *database {
		time.Sleep(10 * time.Millisecond)
		return newDatabase()
	}), nil))

	const n = 20
	var wg sync.WaitGroup
	results := make([]*database, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Resolve(context.Background(), dbTok)
			require.NoError(t, err)
			results[i] = v.(*database)
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, 1, dbCounter)
}

type orderedCloser struct {
	name string
	log  *[]string
	fail bool
}

func (o *orderedCloser) Close() error {
	*o.log = append(*o.log, o.name)
	if o.fail {
		return errors.New(o.name + " failed")
	}
	return nil
}

func TestCloseAll_LIFOOrderSwallowsErrors(t *testing.T) {
	c := New()
	var log []string

	c.RegisterValue(token.Name("X"), &orderedCloser{name: "X", log: &log})
	c.RegisterValue(token.Name("Y"), &orderedCloser{name: "Y", log: &log, fail: true})
	c.RegisterValue(token.Name("Z"), &orderedCloser{name: "Z", log: &log})

	c.CloseAll(context.Background())

	assert.Equal(t, []string{"Z", "Y", "X"}, log)
}

func TestCloseAll_IsIdempotent(t *testing.T) {
	c := New()
	var log []string
	c.RegisterValue(token.Name("X"), &orderedCloser{name: "X", log: &log})

	c.CloseAll(context.Background())
	c.CloseAll(context.Background())

	assert.Equal(t, []string{"X"}, log)
}

func TestHas(t *testing.T) {
	c := New()
	dbTok := token.ForClass[*database]()
	assert.False(t, c.Has(dbTok))

	c.Register(dbTok, provider.NewClassProvider(dbTok, provider.NewConstructor(newDatabase), nil))
	assert.True(t, c.Has(dbTok))
}

func TestValidateDependencies_ReportsMissingAndCycles(t *testing.T) {
	type a struct{}
	type b struct{}
	aTok := token.ForClass[*a]()
	bTok := token.ForClass[*b]()
	missingTok := token.Name("MISSING_VALUE")

	c := New()
	c.Register(aTok, provider.NewFactoryProvider(aTok, []token.Token{bTok, missingTok}, func(args []any) (any, error) {
		return &a{}, nil
	}, nil))
	c.Register(bTok, provider.NewFactoryProvider(bTok, []token.Token{aTok}, func(args []any) (any, error) {
		return &b{}, nil
	}, nil))

	err := c.ValidateDependencies()
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Problems)
	assert.Contains(t, strings.Join(verr.Problems, "\n"), "MISSING_VALUE")
	assert.Contains(t, strings.Join(verr.Problems, "\n"), "circular dependency")
}

func TestValidateDependencies_CleanGraphPasses(t *testing.T) {
	c := New()
	dbTok := token.ForClass[*database]()
	repoTok := token.ForClass[*repository]()
	c.Register(dbTok, provider.NewClassProvider(dbTok, provider.NewConstructor(newDatabase), nil))
	c.Register(repoTok, provider.NewClassProvider(repoTok, provider.NewConstructor(newRepository), nil))

	assert.NoError(t, c.ValidateDependencies())
}
