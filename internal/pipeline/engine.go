// Package pipeline orchestrates one batch import end to end: load, validate,
// dedupe, resolve, score, snapshot. Every stage records exact input/output
// counts; the batch aborts on unexplained loss.
package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pelagic-data/vessel-mdm/internal/config"
	"github.com/pelagic-data/vessel-mdm/internal/dlq"
	"github.com/pelagic-data/vessel-mdm/internal/history"
	"github.com/pelagic-data/vessel-mdm/internal/lineage"
	"github.com/pelagic-data/vessel-mdm/internal/model"
	"github.com/pelagic-data/vessel-mdm/internal/resolve"
	"github.com/pelagic-data/vessel-mdm/internal/staging"
	"github.com/pelagic-data/vessel-mdm/internal/trust"
)

// Store is the registry surface the engine writes through: the union of the
// per-component store interfaces plus the presence and external-identifier
// upserts the engine applies directly. *registry.Repository satisfies it.
type Store interface {
	resolve.VesselStore
	resolve.AttributeStore
	resolve.ConfirmationStore
	trust.ScoreStore
	history.SnapshotStore
	lineage.BatchStore

	UpsertSourcePresence(ctx context.Context, vesselID, source string, seenAt time.Time) error
	UpsertExternalIdentifier(ctx context.Context, ext model.ExternalIdentifier) error
}

// Reference canonicalizes flag, vessel type, and gear codes during
// validation. *registry.Reference satisfies it.
type Reference interface {
	ResolveFlag(ctx context.Context, code string) (string, error)
	ResolveVesselType(ctx context.Context, code string) (string, error)
	ResolveGearType(ctx context.Context, code string) (string, error)
}

// Engine wires the import stages over one store.
type Engine struct {
	cfg       *config.Config
	store     Store
	reference Reference
	tracker   *lineage.Tracker
	resolver  *resolve.Resolver
	conflicts *resolve.Conflicts
	confirms  *resolve.Confirmations
	scorer    *trust.Scorer
	snapshots *history.Manager
	rejects   *dlq.Store
}

// New assembles an Engine from its shared dependencies.
func New(cfg *config.Config, store Store, reference Reference, rejects *dlq.Store) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     store,
		reference: reference,
		tracker:   lineage.NewTracker(store),
		resolver:  resolve.NewResolver(store),
		conflicts: resolve.NewConflicts(store),
		confirms:  resolve.NewConfirmations(store),
		scorer:    trust.NewScorer(store, cfg.Trust, cfg.Sources),
		snapshots: history.NewManager(store, cfg.Trust.DriftThreshold),
		rejects:   rejects,
	}
}

// Run imports one source file as a versioned batch and returns its summary.
// A byte-identical re-import returns ErrAlreadyImported without opening a
// batch. Any stage failure aborts the batch with its cause recorded;
// partial state committed before the abort stays attributed to the failed
// batch, which is not current for reads until retried.
func (e *Engine) Run(ctx context.Context, source, filePath string) (*model.BatchSummary, error) {
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("source", source))

	batch, err := e.tracker.BeginImport(ctx, source, filePath)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("batch_id", batch.ID))

	summary, err := e.run(ctx, log, batch, source, filePath)
	if err != nil {
		status := model.BatchFailed
		if ctx.Err() != nil {
			status = model.BatchAborted
		}
		if abortErr := e.tracker.Abort(context.WithoutCancel(ctx), batch.ID, status, err); abortErr != nil {
			log.Error("abort batch", zap.Error(abortErr))
		}
		return nil, err
	}
	return summary, nil
}

func (e *Engine) run(ctx context.Context, log *zap.Logger, batch *model.ImportBatch, source, filePath string) (*model.BatchSummary, error) {
	records, err := loadFile(filePath, source)
	if err != nil {
		return nil, err
	}
	if err := e.tracker.CompleteStage(ctx, batch.ID, model.StageLoaded, len(records), len(records), 0); err != nil {
		return nil, err
	}
	log.Info("records loaded", zap.Int("count", len(records)))

	valid, warnings, err := e.validate(ctx, batch, records)
	if err != nil {
		return nil, err
	}
	if err := e.tracker.CompleteStage(ctx, batch.ID, model.StageValidated,
		len(records), len(valid), len(records)-len(valid)); err != nil {
		return nil, err
	}

	quality := 1.0
	if len(records) > 0 {
		quality = float64(len(valid)) / float64(len(records))
	}
	if quality < e.cfg.Import.MinValidRate {
		return nil, eris.Errorf("pipeline: valid rate %.2f below minimum %.2f, refusing batch",
			quality, e.cfg.Import.MinValidRate)
	}

	deduped := resolve.Dedupe(valid)
	for key, n := range deduped.DuplicateKeys {
		warnings = append(warnings, model.BatchWarning{
			Type:   "duplicate_identity",
			Detail: key,
			Count:  n + 1,
		})
	}
	if err := e.tracker.CompleteStage(ctx, batch.ID, model.StageDeduped,
		len(valid), len(deduped.Unique), len(valid)-len(deduped.Unique)); err != nil {
		return nil, err
	}

	res, err := e.resolveAll(ctx, batch, deduped.Unique)
	if err != nil {
		return nil, err
	}
	if err := e.tracker.CompleteStage(ctx, batch.ID, model.StageResolved,
		len(deduped.Unique), len(res.refs), len(deduped.Unique)-len(res.refs)); err != nil {
		return nil, err
	}

	dirty := res.dirtyVessels()
	scored, err := e.scorer.RecomputeAll(ctx, dirty)
	if err != nil {
		return nil, err
	}
	if err := e.tracker.CompleteStage(ctx, batch.ID, model.StageScored, len(dirty), scored, 0); err != nil {
		return nil, err
	}

	snapped, err := e.snapshotAll(ctx, log, source, res.refs)
	if err != nil {
		return nil, err
	}
	if err := e.tracker.CompleteStage(ctx, batch.ID, model.StageSnapshot, len(res.refs), snapped, 0); err != nil {
		return nil, err
	}

	if err := e.tracker.Complete(ctx, batch.ID, quality); err != nil {
		return nil, err
	}

	summary, err := e.tracker.Summary(ctx, batch)
	if err != nil {
		return nil, err
	}
	summary.CreatedVessels = res.created
	summary.MatchedVessels = res.matched
	summary.Conflicts = res.conflicts
	summary.Warnings = warnings

	log.Info("batch complete",
		zap.Int("input", summary.InputCount),
		zap.Int("resolved", summary.ResolvedCount),
		zap.Int("rejected", summary.RejectedCount),
		zap.Int("created", summary.CreatedVessels),
		zap.Int("conflicts", summary.Conflicts),
		zap.Float64("quality", quality))
	return summary, nil
}

// loadFile picks the staging loader by file extension.
func loadFile(path, source string) ([]*model.CanonicalRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return staging.LoadXLSX(path, source)
	case ".csv":
		return staging.LoadCSV(path, source)
	default:
		return nil, eris.Errorf("pipeline: unsupported file type %s", path)
	}
}

// validate screens identity and canonicalizes reference codes. Records
// without a usable identity divert to the reject store; a failed reference
// lookup clears the code and keeps the record. An IMO that fails the check
// digit is kept but flagged, since the record may still match by other means.
func (e *Engine) validate(ctx context.Context, batch *model.ImportBatch, records []*model.CanonicalRecord) ([]*model.CanonicalRecord, []model.BatchWarning, error) {
	var valid []*model.CanonicalRecord
	invalidIMOs := make(map[string]int)

	for _, rec := range records {
		if rec.IMO != "" && !resolve.ValidIMO(rec.IMO) {
			detail := resolve.NormalizeDigits(rec.IMO)
			if detail == "" {
				detail = rec.IMO
			}
			invalidIMOs[detail]++
		}

		flag, err := e.reference.ResolveFlag(ctx, rec.FlagAlpha3)
		switch {
		case err == nil:
			rec.FlagAlpha3 = flag
		case eris.Is(err, model.ErrLookupUnresolved):
			rec.FlagAlpha3 = ""
		default:
			return nil, nil, err
		}

		vt, err := e.reference.ResolveVesselType(ctx, rec.VesselTypeCode)
		switch {
		case err == nil:
			rec.VesselTypeCode = vt
		case eris.Is(err, model.ErrLookupUnresolved):
			rec.VesselTypeCode = ""
		default:
			return nil, nil, err
		}

		gt, err := e.reference.ResolveGearType(ctx, rec.GearTypeCode)
		switch {
		case err == nil:
			rec.GearTypeCode = gt
		case eris.Is(err, model.ErrLookupUnresolved):
			rec.GearTypeCode = ""
		default:
			return nil, nil, err
		}

		if _, err := resolve.PriorityKey(rec); err != nil {
			if enqErr := e.rejects.Enqueue(ctx, dlq.Entry{
				BatchID: batch.ID,
				Source:  rec.SourceName,
				Reason:  model.ReasonInsufficientIdentity,
				Detail:  err.Error(),
				Record:  rec,
			}); enqErr != nil {
				return nil, nil, enqErr
			}
			continue
		}
		valid = append(valid, rec)
	}

	warnings := identityWarnings(valid)
	for imo, n := range invalidIMOs {
		warnings = append(warnings, model.BatchWarning{Type: "invalid_imo", Detail: imo, Count: n})
	}
	sortWarnings(warnings)
	return valid, warnings, nil
}

// identityWarnings flags raw IMO and name+flag values that repeat across
// otherwise distinct records. Diagnostics only; dedupe handles collapsing.
func identityWarnings(records []*model.CanonicalRecord) []model.BatchWarning {
	imoSeen := make(map[string]int)
	nameFlagSeen := make(map[string]int)
	for _, rec := range records {
		if rec.IMO != "" {
			imoSeen[resolve.NormalizeDigits(rec.IMO)]++
		}
		if rec.VesselName != "" && rec.FlagAlpha3 != "" {
			nameFlagSeen[resolve.NormalizeName(rec.VesselName)+"|"+rec.FlagAlpha3]++
		}
	}

	var warnings []model.BatchWarning
	for imo, n := range imoSeen {
		if n > 1 {
			warnings = append(warnings, model.BatchWarning{Type: "repeated_imo", Detail: imo, Count: n})
		}
	}
	for nf, n := range nameFlagSeen {
		if n > 1 {
			warnings = append(warnings, model.BatchWarning{Type: "repeated_name_flag", Detail: nf, Count: n})
		}
	}
	sortWarnings(warnings)
	return warnings
}

// sortWarnings orders warnings by type then detail so batch summaries are
// deterministic.
func sortWarnings(warnings []model.BatchWarning) {
	sort.Slice(warnings, func(i, j int) bool {
		if warnings[i].Type != warnings[j].Type {
			return warnings[i].Type < warnings[j].Type
		}
		return warnings[i].Detail < warnings[j].Detail
	})
}

// resolveResult accumulates per-record outcomes across resolve workers.
type resolveResult struct {
	mu        sync.Mutex
	refs      []*model.VesselRef
	created   int
	matched   int
	conflicts int
}

func (r *resolveResult) add(ref *model.VesselRef, conflicts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs = append(r.refs, ref)
	if ref.Created {
		r.created++
	} else {
		r.matched++
	}
	r.conflicts += conflicts
}

// dirtyVessels returns the distinct vessel ids touched this batch, sorted
// for deterministic rescoring order.
func (r *resolveResult) dirtyVessels() []string {
	seen := make(map[string]bool, len(r.refs))
	var out []string
	for _, ref := range r.refs {
		if !seen[ref.VesselID] {
			seen[ref.VesselID] = true
			out = append(out, ref.VesselID)
		}
	}
	sort.Strings(out)
	return out
}

// vesselLocks hands out one mutex per vessel so records from different
// shards that resolve to the same vessel apply their writes serially.
type vesselLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newVesselLocks() *vesselLocks {
	return &vesselLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the vessel's mutex and returns it for unlocking.
func (l *vesselLocks) acquire(vesselID string) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[vesselID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[vesselID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m
}

// resolveAll matches records to vessels in parallel. Records are sharded by
// identity key so two reports of the same identity never race on matching;
// shards run concurrently up to the configured limit. Records that reach the
// same vessel through different identifier types land in different shards,
// so all post-match writes are additionally serialized per vessel.
func (e *Engine) resolveAll(ctx context.Context, batch *model.ImportBatch, records []*model.CanonicalRecord) (*resolveResult, error) {
	workers := e.cfg.Import.MaxParallelResolve
	if workers <= 0 {
		workers = 1
	}

	shards := make([][]*model.CanonicalRecord, workers)
	for _, rec := range records {
		key, err := resolve.PriorityKey(rec)
		if err != nil {
			// Screened during validation; a miss here is a bug.
			return nil, eris.Wrap(err, "pipeline: unkeyed record reached resolve")
		}
		h := fnv.New32a()
		h.Write([]byte(key))
		i := int(h.Sum32()) % workers
		if i < 0 {
			i += workers
		}
		shards[i] = append(shards[i], rec)
	}

	res := &resolveResult{}
	locks := newVesselLocks()
	g, gctx := errgroup.WithContext(ctx)
	for _, shard := range shards {
		if len(shard) == 0 {
			continue
		}
		g.Go(func() error {
			for _, rec := range shard {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := e.resolveOne(gctx, batch, rec, locks, res); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: resolve records")
	}
	return res, nil
}

// conflictFields lists the attribute fields run through conflict detection
// and cross-source confirmation, in apply order.
var conflictFields = []struct {
	name  string
	value func(*model.CanonicalRecord) string
}{
	{"name", func(r *model.CanonicalRecord) string { return resolve.NormalizeName(r.VesselName) }},
	{"flag_alpha3", func(r *model.CanonicalRecord) string { return r.FlagAlpha3 }},
	{"national_registry", func(r *model.CanonicalRecord) string { return r.NationalRegistry }},
	{"vessel_type_code", func(r *model.CanonicalRecord) string { return r.VesselTypeCode }},
	{"gear_type_code", func(r *model.CanonicalRecord) string { return r.GearTypeCode }},
	{"port", func(r *model.CanonicalRecord) string { return r.Port }},
	{"build_year", func(r *model.CanonicalRecord) string { return r.BuildYear }},
	{"length_m", func(r *model.CanonicalRecord) string { return r.LengthM }},
	{"tonnage_gt", func(r *model.CanonicalRecord) string { return r.TonnageGT }},
	{"engine_power_kw", func(r *model.CanonicalRecord) string { return r.EnginePowerKW }},
}

func (e *Engine) resolveOne(ctx context.Context, batch *model.ImportBatch, rec *model.CanonicalRecord, locks *vesselLocks, res *resolveResult) error {
	ref, err := e.resolver.Resolve(ctx, rec)
	if err != nil {
		if eris.Is(err, model.ErrInsufficientIdentity) {
			return e.rejects.Enqueue(ctx, dlq.Entry{
				BatchID: batch.ID,
				Source:  rec.SourceName,
				Reason:  model.ReasonInsufficientIdentity,
				Detail:  err.Error(),
				Record:  rec,
			})
		}
		return err
	}

	// Conflict detection is read-compare-write against the vessel's active
	// attributes; hold the vessel's lock for the whole apply.
	m := locks.acquire(ref.VesselID)
	defer m.Unlock()

	seenAt := batch.StartedAt
	if rec.SourceDate != nil {
		seenAt = *rec.SourceDate
	}
	if err := e.store.UpsertSourcePresence(ctx, ref.VesselID, rec.SourceName, seenAt); err != nil {
		return err
	}

	if rec.ExternalID != "" {
		if err := e.store.UpsertExternalIdentifier(ctx, model.ExternalIdentifier{
			VesselID: ref.VesselID,
			Source:   rec.SourceName,
			Type:     "registry_id",
			Value:    rec.ExternalID,
		}); err != nil {
			return err
		}
	}

	conflicts := 0
	for _, f := range conflictFields {
		outcome, err := e.conflicts.CheckAndApply(ctx, ref, rec, f.name, f.value(rec))
		if err != nil {
			return err
		}
		if outcome == resolve.ConflictLogged {
			conflicts++
		}
		if _, err := e.confirms.Confirm(ctx, ref, f.name, f.value(rec), rec.SourceName, seenAt); err != nil {
			return err
		}
	}

	for field, value := range rec.Attributes {
		if _, err := e.conflicts.CheckAndApply(ctx, ref, rec, "attr:"+field, value); err != nil {
			return err
		}
	}

	res.add(ref, conflicts)
	return nil
}

// snapshotAll writes one snapshot per resolved vessel and logs drift. Refs
// are deduplicated by vessel so a vessel matched by several keys still gets
// one snapshot per batch.
func (e *Engine) snapshotAll(ctx context.Context, log *zap.Logger, source string, refs []*model.VesselRef) (int, error) {
	asOf := time.Now().UTC()
	seen := make(map[string]bool, len(refs))
	snapped := 0
	for _, ref := range refs {
		if seen[ref.VesselID] {
			snapped++
			continue
		}
		seen[ref.VesselID] = true

		if _, err := e.snapshots.Snapshot(ctx, ref, source, asOf); err != nil {
			return snapped, err
		}
		drifted, delta, err := e.snapshots.DriftCheck(ctx, ref.VesselID, source)
		if err != nil {
			return snapped, err
		}
		if drifted {
			log.Warn("snapshot drift flagged",
				zap.String("vessel_id", ref.VesselID),
				zap.String("delta", fmt.Sprintf("%+.3f", delta)))
		}
		snapped++
	}
	return snapped, nil
}
