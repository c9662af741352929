package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/storage"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) SaveRun(ctx context.Context, run types.FleetRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockDatabase) GetRun(ctx context.Context, id string) (types.FleetRun, error) {
	args := m.Called(ctx, id)
	if len(args) > 0 {
		return args.Get(0).(types.FleetRun), args.Error(1)
	}
	return types.FleetRun{}, nil
}

func (m *MockDatabase) ListRuns(ctx context.Context, month types.Month) ([]types.FleetRun, error) {
	args := m.Called(ctx, month)
	if len(args) > 0 {
		if args.Get(0) == nil {
			return nil, args.Error(1)
		}
		return args.Get(0).([]types.FleetRun), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
