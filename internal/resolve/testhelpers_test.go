package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeVesselStore is an in-memory VesselStore for resolver tests.
type fakeVesselStore struct {
	vessels   map[string]*model.Vessel
	attached  []string
	conflicts []model.ConflictRecord
	nextID    int
}

func newFakeVesselStore() *fakeVesselStore {
	return &fakeVesselStore{vessels: make(map[string]*model.Vessel)}
}

func (f *fakeVesselStore) add(v *model.Vessel) {
	f.vessels[v.ID] = v
}

func (f *fakeVesselStore) FindVesselByIdentifier(_ context.Context, idType model.IdentifierType, value string) (*model.Vessel, error) {
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

func (f *fakeVesselStore) FindVesselByNameFlag(_ context.Context, name, flagAlpha3 string) (*model.Vessel, error) {
	for _, v := range f.vessels {
		if v.Name == name && v.FlagAlpha3 == flagAlpha3 {
			return v, nil
		}
	}
	return nil, nil
}

func (f *fakeVesselStore) CreateVessel(_ context.Context, seed model.CanonicalRecord) (*model.Vessel, error) {
	f.nextID++
	v := &model.Vessel{
		ID:         fmt.Sprintf("vessel-%d", f.nextID),
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

func (f *fakeVesselStore) AttachIdentifier(_ context.Context, vesselID string, idType model.IdentifierType, value string) error {
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
	f.attached = append(f.attached, string(idType)+"="+value)
	return nil
}

func (f *fakeVesselStore) AppendConflict(_ context.Context, c model.ConflictRecord) error {
	f.conflicts = append(f.conflicts, c)
	return nil
}

// fakeAttributeStore is an in-memory AttributeStore for conflict tests.
type fakeAttributeStore struct {
	active    map[string]string // vessel|source|field -> value
	inserted  []string
	history   []model.ReportedHistoryEvent
	conflicts []model.ConflictRecord
}

func newFakeAttributeStore() *fakeAttributeStore {
	return &fakeAttributeStore{active: make(map[string]string)}
}

func attrKey(vesselID, source, field string) string {
	return vesselID + "|" + source + "|" + field
}

func (f *fakeAttributeStore) ActiveAttribute(_ context.Context, vesselID, source, field string) (string, bool, error) {
	v, ok := f.active[attrKey(vesselID, source, field)]
	return v, ok, nil
}

func (f *fakeAttributeStore) InsertAttribute(_ context.Context, vesselID, source, field, value string) error {
	f.active[attrKey(vesselID, source, field)] = value
	f.inserted = append(f.inserted, field+"="+value)
	return nil
}

func (f *fakeAttributeStore) DeactivateAttribute(_ context.Context, vesselID, source, field string) error {
	delete(f.active, attrKey(vesselID, source, field))
	return nil
}

func (f *fakeAttributeStore) AppendConflict(_ context.Context, c model.ConflictRecord) error {
	f.conflicts = append(f.conflicts, c)
	return nil
}

func (f *fakeAttributeStore) AppendHistory(_ context.Context, e model.ReportedHistoryEvent) error {
	f.history = append(f.history, e)
	return nil
}
