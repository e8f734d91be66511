package sidefx

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/puzzlebox/internal/ir"
	"github.com/roach88/puzzlebox/internal/savefile"
	"github.com/roach88/puzzlebox/internal/state"
	"github.com/roach88/puzzlebox/internal/testutil"
)

// stubEffect is a scriptable effect for registry tests.
type stubEffect struct {
	key       uint32
	typ       ir.EffectType
	doneAfter int // Process calls before reporting done; 0 = never
	declines  bool

	processed int
	stopped   bool
	killed    bool
}

func (s *stubEffect) Key() uint32         { return s.key }
func (s *stubEffect) Type() ir.EffectType { return s.typ }

func (s *stubEffect) Process(int) bool {
	s.processed++
	return s.doneAfter > 0 && s.processed >= s.doneAfter
}

func (s *stubEffect) Stop() bool {
	if s.declines {
		return false
	}
	s.stopped = true
	return true
}

func (s *stubEffect) Kill() { s.killed = true }

func newStub(key uint32, typ ir.EffectType) *stubEffect {
	return &stubEffect{key: key, typ: typ}
}

func TestRegistry_AddGet(t *testing.T) {
	r := NewRegistry(PolicyKillReplace, nil)
	fx := newStub(1, ir.EffectTimer)

	assert.True(t, r.Add(fx, ir.ScopeRoom))
	assert.Same(t, fx, r.Get(1))
	assert.Nil(t, r.Get(2))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_KillReplace(t *testing.T) {
	r := NewRegistry(PolicyKillReplace, nil)
	old := newStub(1, ir.EffectTimer)
	fresh := newStub(1, ir.EffectAnim)

	r.Add(old, ir.ScopeRoom)
	assert.True(t, r.Add(fresh, ir.ScopeRoom))

	assert.True(t, old.killed)
	assert.Same(t, fresh, r.Get(1))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_StopReplace(t *testing.T) {
	r := NewRegistry(PolicyStopReplace, nil)

	old := newStub(1, ir.EffectTimer)
	r.Add(old, ir.ScopeRoom)
	fresh := newStub(1, ir.EffectTimer)
	assert.True(t, r.Add(fresh, ir.ScopeRoom))
	assert.True(t, old.stopped)
	assert.Same(t, fresh, r.Get(1))

	stubborn := newStub(2, ir.EffectAudio)
	stubborn.declines = true
	r.Add(stubborn, ir.ScopeRoom)
	rejected := newStub(2, ir.EffectAudio)
	assert.False(t, r.Add(rejected, ir.ScopeRoom))
	assert.True(t, rejected.killed, "discarded effect must release its resources")
	assert.Same(t, stubborn, r.Get(2))
}

func TestRegistry_StopReplaceTimerStaysPending(t *testing.T) {
	st := state.New(nil)
	r := NewRegistry(PolicyStopReplace, nil)

	r.Add(NewTimer(st, 200, 5000), ir.ScopeRoom)
	fresh := NewTimer(st, 200, 5000)
	assert.True(t, r.Add(fresh, ir.ScopeRoom))

	assert.Equal(t, 1, r.Len())
	assert.Same(t, fresh, r.Get(200))
	assert.Equal(t, ir.EffectPending, st.Get(200))
}

func TestRegistry_VacateBeforeBuild(t *testing.T) {
	st := state.New(nil)
	r := NewRegistry(PolicyStopReplace, nil)
	old := NewTimer(st, 200, 5000)
	r.Add(old, ir.ScopeRoom)

	require.True(t, r.Vacate(200))
	assert.Nil(t, r.Get(200))
	assert.Equal(t, ir.EffectFinished, st.Get(200), "stopped timer finishes its key")

	r.Add(NewTimer(st, 200, 1000), ir.ScopeRoom)
	assert.Equal(t, ir.EffectPending, st.Get(200))

	stubborn := newStub(7, ir.EffectAudio)
	stubborn.declines = true
	r.Add(stubborn, ir.ScopeRoom)
	assert.False(t, r.Vacate(7))
	assert.Same(t, stubborn, r.Get(7))

	kr := NewRegistry(PolicyKillReplace, nil)
	victim := newStub(9, ir.EffectAnim)
	kr.Add(victim, ir.ScopeRoom)
	assert.True(t, kr.Vacate(9))
	assert.True(t, victim.killed)
	assert.Equal(t, 0, kr.Len())
}

func TestRegistry_KeepExisting(t *testing.T) {
	r := NewRegistry(PolicyKeepExisting, nil)
	old := newStub(1, ir.EffectTimer)
	r.Add(old, ir.ScopeRoom)

	assert.False(t, r.Vacate(1))
	assert.True(t, r.Vacate(2))
	assert.False(t, old.killed)

	fresh := newStub(1, ir.EffectTimer)
	assert.False(t, r.Add(fresh, ir.ScopeRoom))
	assert.True(t, fresh.killed)
	assert.False(t, old.killed)
	assert.Same(t, old, r.Get(1))
}

func TestRegistry_UniquePerKey(t *testing.T) {
	for _, policy := range []CollisionPolicy{PolicyKillReplace, PolicyStopReplace, PolicyKeepExisting} {
		t.Run(policy.String(), func(t *testing.T) {
			r := NewRegistry(policy, nil)
			keys := []uint32{1, 2, 1, 3, 2, 1, 1, 3}
			for i, k := range keys {
				fx := newStub(k, ir.EffectTimer)
				fx.declines = i%2 == 0
				r.Add(fx, ir.ScopeRoom)
				if i%3 == 0 {
					r.Stop(k)
				}
				if i%4 == 0 {
					r.Kill(k + 1)
				}
				seen := map[uint32]int{}
				for _, e := range r.Effects() {
					seen[e.Key()]++
				}
				for key, n := range seen {
					require.Equal(t, 1, n, "key %d registered %d times", key, n)
				}
			}
		})
	}
}

func TestRegistry_ProcessRemovesDone(t *testing.T) {
	r := NewRegistry(PolicyKillReplace, nil)
	quick := newStub(1, ir.EffectTimer)
	quick.doneAfter = 1
	slow := newStub(2, ir.EffectTimer)
	slow.doneAfter = 2
	forever := newStub(3, ir.EffectRegion)

	r.Add(quick, ir.ScopeRoom)
	r.Add(slow, ir.ScopeRoom)
	r.Add(forever, ir.ScopeRoom)

	r.Process(16)
	assert.Nil(t, r.Get(1))
	assert.Equal(t, 2, r.Len())

	r.Process(16)
	assert.Nil(t, r.Get(2))
	assert.Equal(t, []Effect{forever}, r.Effects())
	assert.False(t, quick.killed, "finished effects are not killed")
}

func TestRegistry_Stop(t *testing.T) {
	r := NewRegistry(PolicyKillReplace, nil)
	polite := newStub(1, ir.EffectTimer)
	stubborn := newStub(2, ir.EffectAudio)
	stubborn.declines = true
	r.Add(polite, ir.ScopeRoom)
	r.Add(stubborn, ir.ScopeRoom)

	assert.True(t, r.Stop(1))
	assert.Nil(t, r.Get(1))

	assert.False(t, r.Stop(2))
	assert.NotNil(t, r.Get(2))

	assert.False(t, r.Stop(99), "miss is a no-op")
}

func TestRegistry_KillVariants(t *testing.T) {
	r := NewRegistry(PolicyKillReplace, nil)
	timer := newStub(1, ir.EffectTimer)
	anim := newStub(2, ir.EffectAnim)
	music := newStub(3, ir.EffectAudio)
	r.Add(timer, ir.ScopeNodeView)
	r.Add(anim, ir.ScopeRoom)
	r.Add(music, ir.ScopeUniverse)

	r.Kill(99)
	assert.Equal(t, 3, r.Len())

	r.KillType(ir.EffectAnim | ir.EffectTimer)
	assert.True(t, timer.killed)
	assert.True(t, anim.killed)
	assert.False(t, music.killed)
	assert.Equal(t, 1, r.Len())

	r.KillAll()
	assert.True(t, music.killed)
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_KillOwnedBy(t *testing.T) {
	r := NewRegistry(PolicyKillReplace, nil)
	nv := newStub(1, ir.EffectTimer)
	room := newStub(2, ir.EffectTimer)
	uni := newStub(3, ir.EffectAudio)
	r.Add(nv, ir.ScopeNodeView)
	r.Add(room, ir.ScopeRoom)
	r.Add(uni, ir.ScopeUniverse)

	r.KillOwnedBy(ir.ScopeNodeView, ir.ScopeRoom)

	assert.True(t, nv.killed)
	assert.True(t, room.killed)
	assert.False(t, uni.killed)
	assert.Same(t, uni, r.Get(3))
}

func TestRegistry_SerializeOnlySerializers(t *testing.T) {
	st := state.New(nil)
	r := NewRegistry(PolicyKillReplace, nil)
	r.Add(NewTimer(st, 200, 2000), ir.ScopeRoom)
	r.Add(NewRegion(testutil.NewRenderer(), ir.Region{Key: 5, Effect: "glow"}), ir.ScopeRoom)
	r.Add(NewTimer(st, 201, 500), ir.ScopeWorld)

	var buf bytes.Buffer
	w, err := savefile.NewWriter(&buf, 1)
	require.NoError(t, err)
	require.NoError(t, r.Serialize(w))

	rd, err := savefile.NewReader(&buf, 1)
	require.NoError(t, err)
	var keys []uint32
	for {
		c, err := rd.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		require.Equal(t, savefile.TagTimer, c.Tag)
		keys = append(keys, savefile.NewDecoder(c.Data).Uint32())
	}
	assert.Equal(t, []uint32{200, 201}, keys)
}

func TestParseCollisionPolicy(t *testing.T) {
	p, err := ParseCollisionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyKillReplace, p)

	p, err = ParseCollisionPolicy("keep_existing")
	require.NoError(t, err)
	assert.Equal(t, PolicyKeepExisting, p)

	_, err = ParseCollisionPolicy("overwrite")
	assert.Error(t, err)
}
