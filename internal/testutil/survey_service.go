package testutil

import (
	"context"
	"slices"

	"github.com/Agrid-Dev/heatlosscalc/internal/climate"
	"github.com/Agrid-Dev/heatlosscalc/internal/heatloss"
	"github.com/Agrid-Dev/heatlosscalc/internal/survey"
)

// FakeSurveyService is a reusable fake implementing ports.SurveyService.
// Put ONLY what multiple test packages need here.
type FakeSurveyService struct {
	S survey.Snapshot

	SetIndoorCalled bool
	SetIndoorArg    float64
	SetIndoorErr    error

	SetOutdoorCalled bool
	SetOutdoorArg    float64
	SetOutdoorErr    error

	SetPolicyCalled bool
	SetPolicyArg    heatloss.Policy
	SetPolicyErr    error

	SetAgeBandCalled bool
	SetAgeBandArg    heatloss.AgeBand
	SetAgeBandErr    error

	PutRoomCalled bool
	PutRoomArg    heatloss.RoomInput
	PutRoomErr    error

	DeleteRoomArg string
	DeleteRoomErr error

	SetPostcodeArg string
	Resolution     climate.Resolution
	SetPostcodeErr error
}

func NewFakeSurveyService() *FakeSurveyService {
	return &FakeSurveyService{
		S: survey.Snapshot{
			Conditions: survey.Conditions{
				IndoorC:       21,
				OutdoorC:      -3,
				OutdoorSource: survey.SourceConfig,
				Policy:        heatloss.PolicyMax,
				AgeBand:       heatloss.AgeBandD,
			},
		},
	}
}

func (f *FakeSurveyService) Get() survey.Snapshot { return f.S }

func (f *FakeSurveyService) SetIndoorTemperature(v float64) error {
	f.SetIndoorCalled = true
	f.SetIndoorArg = v
	if f.SetIndoorErr != nil {
		return f.SetIndoorErr
	}
	f.S.IndoorC = v
	return nil
}

func (f *FakeSurveyService) SetOutdoorTemperature(v float64) error {
	f.SetOutdoorCalled = true
	f.SetOutdoorArg = v
	if f.SetOutdoorErr != nil {
		return f.SetOutdoorErr
	}
	f.S.OutdoorC = v
	f.S.OutdoorSource = survey.SourceManual
	return nil
}

func (f *FakeSurveyService) SetPolicy(p heatloss.Policy) error {
	f.SetPolicyCalled = true
	f.SetPolicyArg = p
	if f.SetPolicyErr != nil {
		return f.SetPolicyErr
	}
	f.S.Policy = p
	return nil
}

func (f *FakeSurveyService) SetAgeBand(b heatloss.AgeBand) error {
	f.SetAgeBandCalled = true
	f.SetAgeBandArg = b
	if f.SetAgeBandErr != nil {
		return f.SetAgeBandErr
	}
	f.S.AgeBand = b
	return nil
}

func (f *FakeSurveyService) PutRoom(r heatloss.RoomInput) (heatloss.RoomInput, error) {
	f.PutRoomCalled = true
	f.PutRoomArg = r
	if f.PutRoomErr != nil {
		return r, f.PutRoomErr
	}
	for i := range f.S.Rooms {
		if f.S.Rooms[i].Room.Name == r.Room.Name {
			f.S.Rooms[i] = r
			return r, nil
		}
	}
	f.S.Rooms = append(f.S.Rooms, r)
	return r, nil
}

func (f *FakeSurveyService) DeleteRoom(name string) error {
	f.DeleteRoomArg = name
	if f.DeleteRoomErr != nil {
		return f.DeleteRoomErr
	}
	for i := range f.S.Rooms {
		if f.S.Rooms[i].Room.Name == name {
			f.S.Rooms = slices.Delete(f.S.Rooms, i, i+1)
			return nil
		}
	}
	return survey.ErrRoomNotFound
}

func (f *FakeSurveyService) RoomBreakdown(name string) (heatloss.RoomLossBreakdown, error) {
	for _, r := range f.S.Rooms {
		if r.Room.Name == name {
			return heatloss.ComputeRoomLoss(r.Room, heatloss.Inputs{
				IndoorC:  f.S.IndoorC,
				OutdoorC: f.S.OutdoorC,
				VolumeM3: r.VolumeM3,
				AgeBand:  f.S.AgeBand,
				RoomType: r.RoomType,
				Policy:   f.S.Policy,
			}), nil
		}
	}
	return heatloss.RoomLossBreakdown{}, survey.ErrRoomNotFound
}

func (f *FakeSurveyService) Breakdown() heatloss.BuildingBreakdown {
	return heatloss.ComputeBuildingLoss(f.S.Rooms, f.S.IndoorC, f.S.OutdoorC, f.S.AgeBand, f.S.Policy)
}

func (f *FakeSurveyService) SetPostcode(_ context.Context, pc string) (climate.Resolution, error) {
	f.SetPostcodeArg = pc
	if f.SetPostcodeErr != nil {
		return climate.Resolution{}, f.SetPostcodeErr
	}
	f.S.Postcode = climate.NormalizePostcode(pc)
	if dt := f.Resolution.Result.DesignTemp; dt != nil {
		f.S.OutdoorC = *dt
	}
	return f.Resolution, nil
}

// FakeClimateService returns a fixed resolution and records queries.
type FakeClimateService struct {
	Resolution climate.Resolution
	Queries    []climate.Query
}

func (f *FakeClimateService) Resolve(_ context.Context, q climate.Query) climate.Resolution {
	f.Queries = append(f.Queries, q)
	r := f.Resolution
	r.Postcode = climate.NormalizePostcode(q.Postcode)
	return r
}
