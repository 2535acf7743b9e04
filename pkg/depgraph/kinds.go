package depgraph

// Kind is one of the 14 closed dependency-kind tags the engine understands,
// per spec section 9's "duck typing" design note: the original source
// threads the kind as a bare string ("ineed", "iuse", ...) through parsing
// and the deptree cache; here it is a closed, integer-indexed enum with a
// single bijective name table, so parsing and cache I/O map the string once
// and everything downstream works on Kind values.
type Kind int

const (
	KindNeed Kind = iota
	KindNeedsMe
	KindUse
	KindUsesMe
	KindWant
	KindWantsMe
	KindAfter
	KindAfterMe
	KindBefore
	KindBeforeMe
	KindProvide
	KindProvidedBy
	KindBroken
	KindKeyword
	numKinds
)

// kindNames is the bijective name table, indexed by Kind, matching the
// deptree cache's TYPE vocabulary (spec section 6) and the original
// librc-depend.c rc_deptype_strings array.
var kindNames = [numKinds]string{
	KindNeed:       "ineed",
	KindNeedsMe:    "needsme",
	KindUse:        "iuse",
	KindUsesMe:     "usesme",
	KindWant:       "iwant",
	KindWantsMe:    "wantsme",
	KindAfter:      "iafter",
	KindAfterMe:    "afterme",
	KindBefore:     "ibefore",
	KindBeforeMe:   "beforeme",
	KindProvide:    "iprovide",
	KindProvidedBy: "providedby",
	KindBroken:     "broken",
	KindKeyword:    "keyword",
}

var kindByName = func() map[string]Kind {
	m := make(map[string]Kind, numKinds)
	for k, name := range kindNames {
		m[name] = Kind(k)
	}
	return m
}()

func (k Kind) String() string {
	if k < 0 || int(k) >= int(numKinds) {
		return "invalid"
	}
	return kindNames[k]
}

// ParseKind maps a raw TYPE token from the shell harness or the deptree
// cache to a Kind. It reports ok=false for unrecognized tokens, which
// callers must silently ignore per spec 4.2's parsing rule.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindByName[name]
	return k, ok
}

// reverseOf gives the backlink kind for each of the six forward relational
// kinds (spec 3's edge-kind table); Broken and Keyword have no reverse,
// they are per-node attribute lists, not edges.
var reverseOf = map[Kind]Kind{
	KindNeed:    KindNeedsMe,
	KindUse:     KindUsesMe,
	KindWant:    KindWantsMe,
	KindAfter:   KindAfterMe,
	KindBefore:  KindBeforeMe,
	KindProvide: KindProvidedBy,
}

// forwardKinds lists the six forward-declarable relational kinds, i.e. the
// ones a service's dependency info may state directly.
var forwardKinds = []Kind{KindNeed, KindUse, KindWant, KindAfter, KindBefore, KindProvide}

var mirrorKindOf = func() map[Kind]Kind {
	m := make(map[Kind]Kind, len(reverseOf)*2)
	for fwd, rev := range reverseOf {
		m[fwd] = rev
		m[rev] = fwd
	}
	return m
}()

// mirrorKind returns the opposite kind of a relational edge in either
// direction (forward->reverse or reverse->forward); ok is false for Broken
// and Keyword, which have no mirror.
func mirrorKind(k Kind) (Kind, bool) {
	m, ok := mirrorKindOf[k]
	return m, ok
}

// cycleCost orders the aggregate kinds used in cycle-breaking, per spec
// 4.2: "use < after < need < providedby". Lower is cheaper to drop.
var cycleCost = map[Kind]int{
	KindUse:        0,
	KindAfter:      1,
	KindNeed:       2,
	KindProvidedBy: 3,
}
