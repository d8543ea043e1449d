package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/config"
	"github.com/pelagic-data/vessel-mdm/internal/model"
	"github.com/pelagic-data/vessel-mdm/internal/resolve"
)

// fakeRegistry is an in-memory Store for engine tests. All methods take the
// registry lock so the engine's parallel resolve workers can hit it safely.
type fakeRegistry struct {
	mu sync.Mutex

	vessels   map[string]*model.Vessel
	active    map[string]string // vessel|source|field -> value
	inserted  map[string]int    // field -> insert count
	conflicts []model.ConflictRecord
	history   []model.ReportedHistoryEvent
	confirms  map[string]map[string]bool // vessel|field|value -> confirming sources
	presences map[string]model.SourcePresence
	externals []model.ExternalIdentifier
	scores    map[string]model.TrustScore
	snaps     []model.Snapshot
	events    map[string][]model.ReputationEvent

	lineages map[string]model.Lineage // source|hash -> lineage
	batches  map[string]*model.ImportBatch
	stages   map[string][]model.StageCount
	quality  map[string]float64

	nextVessel int
	nextBatch  int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		vessels:   make(map[string]*model.Vessel),
		active:    make(map[string]string),
		inserted:  make(map[string]int),
		confirms:  make(map[string]map[string]bool),
		presences: make(map[string]model.SourcePresence),
		scores:    make(map[string]model.TrustScore),
		events:    make(map[string][]model.ReputationEvent),
		lineages:  make(map[string]model.Lineage),
		batches:   make(map[string]*model.ImportBatch),
		stages:    make(map[string][]model.StageCount),
		quality:   make(map[string]float64),
	}
}

func (f *fakeRegistry) add(v *model.Vessel) {
	f.vessels[v.ID] = v
}

func attrKey(vesselID, source, field string) string {
	return vesselID + "|" + source + "|" + field
}

func (f *fakeRegistry) FindVesselByIdentifier(_ context.Context, idType model.IdentifierType, value string) (*model.Vessel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vessels {
		switch idType {
		case model.IdentifierIMO:
			if v.IMO == value {
				return v, nil
			}
		case model.IdentifierIRCS:
			if v.IRCS == value {
				return v, nil
			}
		case model.IdentifierMMSI:
			if v.MMSI == value {
				return v, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeRegistry) FindVesselByNameFlag(_ context.Context, name, flagAlpha3 string) (*model.Vessel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.vessels {
		if v.Name == name && v.FlagAlpha3 == flagAlpha3 {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeRegistry) CreateVessel(_ context.Context, seed model.CanonicalRecord) (*model.Vessel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextVessel++
	v := &model.Vessel{
		ID:         fmt.Sprintf("vessel-%d", f.nextVessel),
		Name:       seed.VesselName,
		FlagAlpha3: seed.FlagAlpha3,
		IMO:        seed.IMO,
		IRCS:       seed.IRCS,
		MMSI:       seed.MMSI,
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	f.vessels[v.ID] = v
	return v, nil
}

func (f *fakeRegistry) AttachIdentifier(_ context.Context, vesselID string, idType model.IdentifierType, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vessels[vesselID]
	if !ok {
		return fmt.Errorf("unknown vessel %s", vesselID)
	}
	switch idType {
	case model.IdentifierIMO:
		v.IMO = value
	case model.IdentifierIRCS:
		v.IRCS = value
	case model.IdentifierMMSI:
		v.MMSI = value
	}
	return nil
}

func (f *fakeRegistry) AppendConflict(_ context.Context, c model.ConflictRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conflicts = append(f.conflicts, c)
	return nil
}

func (f *fakeRegistry) ActiveAttribute(_ context.Context, vesselID, source, field string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.active[attrKey(vesselID, source, field)]
	return v, ok, nil
}

func (f *fakeRegistry) InsertAttribute(_ context.Context, vesselID, source, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[attrKey(vesselID, source, field)] = value
	f.inserted[field]++
	return nil
}

func (f *fakeRegistry) DeactivateAttribute(_ context.Context, vesselID, source, field string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, attrKey(vesselID, source, field))
	return nil
}

func (f *fakeRegistry) AppendHistory(_ context.Context, e model.ReportedHistoryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, e)
	return nil
}

func (f *fakeRegistry) AppendConfirmation(_ context.Context, vesselID, field, value, source string, at time.Time) (*model.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := vesselID + "|" + field + "|" + value
	sources, ok := f.confirms[key]
	if !ok {
		sources = make(map[string]bool)
		f.confirms[key] = sources
	}
	sources[source] = true
	return &model.Confirmation{
		VesselID:      vesselID,
		Field:         field,
		Value:         value,
		SourceCount:   len(sources),
		Confidence:    resolve.Confidence(len(sources)),
		LastConfirmed: at,
	}, nil
}

func (f *fakeRegistry) GetVessel(_ context.Context, vesselID string) (*model.Vessel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vessels[vesselID]
	if !ok {
		return nil, fmt.Errorf("unknown vessel %s", vesselID)
	}
	return v, nil
}

func (f *fakeRegistry) ActivePresences(_ context.Context, vesselID string) ([]model.SourcePresence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SourcePresence
	for _, p := range f.presences {
		if p.VesselID == vesselID && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRegistry) ConflictCount(_ context.Context, vesselID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.conflicts {
		if c.VesselID == vesselID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRegistry) ListReputationEvents(_ context.Context, vesselID string) ([]model.ReputationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[vesselID], nil
}

func (f *fakeRegistry) SaveTrustScore(_ context.Context, t model.TrustScore) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores[t.VesselID] = t
	return nil
}

func (f *fakeRegistry) GetTrustScore(_ context.Context, vesselID string) (*model.TrustScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.scores[vesselID]
	if !ok {
		return nil, fmt.Errorf("no trust score for vessel %s", vesselID)
	}
	return &t, nil
}

func (f *fakeRegistry) SaveSnapshot(_ context.Context, s model.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.ID = fmt.Sprintf("snap-%d", len(f.snaps)+1)
	f.snaps = append(f.snaps, s)
	return nil
}

func (f *fakeRegistry) RecentSnapshots(_ context.Context, vesselID, source string, n int) ([]model.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Snapshot
	for i := len(f.snaps) - 1; i >= 0 && len(out) < n; i-- {
		if f.snaps[i].VesselID == vesselID && f.snaps[i].Source == source {
			out = append(out, f.snaps[i])
		}
	}
	return out, nil
}

func (f *fakeRegistry) UpsertSourcePresence(_ context.Context, vesselID, source string, seenAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := vesselID + "|" + source
	p, ok := f.presences[key]
	if !ok {
		p = model.SourcePresence{VesselID: vesselID, Source: source, FirstSeen: seenAt}
	}
	p.LastSeen = seenAt
	p.Active = true
	f.presences[key] = p
	return nil
}

func (f *fakeRegistry) UpsertExternalIdentifier(_ context.Context, ext model.ExternalIdentifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ext.Active = true
	f.externals = append(f.externals, ext)
	return nil
}

func (f *fakeRegistry) FindLineageByHash(_ context.Context, source, contentHash string) (*model.Lineage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lin, ok := f.lineages[source+"|"+contentHash]
	if !ok {
		return nil, nil
	}
	return &lin, nil
}

func (f *fakeRegistry) OpenBatch(_ context.Context, source string, lin model.Lineage) (*model.ImportBatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var prev *string
	for _, b := range f.batches {
		if b.Source == source && b.IsCurrent {
			b.IsCurrent = false
			id := b.ID
			prev = &id
		}
	}
	f.nextBatch++
	batch := &model.ImportBatch{
		ID:              fmt.Sprintf("batch-%d", f.nextBatch),
		Source:          source,
		Status:          model.BatchRunning,
		PreviousBatchID: prev,
		IsCurrent:       true,
		StartedAt:       time.Now().UTC(),
	}
	f.batches[batch.ID] = batch
	lin.BatchID = batch.ID
	f.lineages[source+"|"+lin.ContentHash] = lin
	return batch, nil
}

func (f *fakeRegistry) RecordStage(_ context.Context, batchID, stage string, inputCount, outputCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages[batchID] = append(f.stages[batchID], model.StageCount{
		BatchID:     batchID,
		Stage:       stage,
		InputCount:  inputCount,
		OutputCount: outputCount,
	})
	return nil
}

func (f *fakeRegistry) ListStages(_ context.Context, batchID string) ([]model.StageCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stages[batchID], nil
}

func (f *fakeRegistry) CloseBatch(_ context.Context, batchID string, status model.BatchStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.batches[batchID]
	if !ok {
		return fmt.Errorf("unknown batch %s", batchID)
	}
	now := time.Now().UTC()
	b.Status = status
	b.Error = errMsg
	b.CompletedAt = &now
	return nil
}

func (f *fakeRegistry) SetLineageQuality(_ context.Context, batchID string, quality float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quality[batchID] = quality
	return nil
}

// fakeReference resolves flags against a fixed allow list and passes type
// and gear codes through unchanged.
type fakeReference struct {
	flags map[string]bool
}

func newFakeReference(flags ...string) *fakeReference {
	r := &fakeReference{flags: make(map[string]bool)}
	for _, f := range flags {
		r.flags[f] = true
	}
	return r
}

func (r *fakeReference) ResolveFlag(_ context.Context, code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", nil
	}
	if r.flags[code] {
		return code, nil
	}
	return "", eris.Wrapf(model.ErrLookupUnresolved, "flag code %q", code)
}

func (r *fakeReference) ResolveVesselType(_ context.Context, code string) (string, error) {
	return strings.TrimSpace(code), nil
}

func (r *fakeReference) ResolveGearType(_ context.Context, code string) (string, error) {
	return strings.TrimSpace(code), nil
}

func testEngineConfig() *config.Config {
	return &config.Config{
		Import: config.ImportConfig{MaxParallelResolve: 4, MinValidRate: 0.5},
		Trust: config.TrustConfig{
			IdentifierWeight:    0.30,
			SourceWeight:        0.25,
			DataWeight:          0.20,
			ConsistencyWeight:   0.15,
			ReputationWeight:    0.10,
			ReputationDecayDays: 1095,
			BlacklistPenalty:    0.30,
			BlacklistWindowDays: 365,
			MinTrust:            0.7,
			MinCompleteness:     0.6,
			DriftThreshold:      0.15,
		},
		Sources: config.SourcesConfig{DefaultAuthority: 0.5},
	}
}
