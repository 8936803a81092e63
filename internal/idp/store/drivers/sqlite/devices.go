package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/bartab-idp/internal/idp/domain"
	"github.com/aussiebroadwan/bartab-idp/internal/idp/store/drivers/sqlite/gen"
)

type devicesRepo struct {
	q *gen.Queries
}

func (r *devicesRepo) CreateDevice(ctx context.Context, d domain.Device) error {
	err := r.q.CreateDevice(ctx, gen.CreateDeviceParams{
		DeviceCode:              d.DeviceCode,
		UserCode:                d.UserCode,
		ClientID:                d.ClientID,
		Scopes:                  joinFields(d.Scopes),
		VerificationUri:         d.VerificationURI,
		VerificationUriComplete: d.VerificationURIComplete,
		CreatedAt:               unix(d.CreatedAt),
		ExpiresIn:               d.ExpiresIn,
		Interval:                d.Interval,
		LastPolledAt:            mapOptionalTime(d.LastPolledAt),
	})
	return mapConstraint(err)
}

func (r *devicesRepo) GetByDeviceCode(ctx context.Context, fingerprint string) (domain.Device, error) {
	row, err := r.q.GetDeviceByCode(ctx, fingerprint)
	if err != nil {
		return domain.Device{}, mapNotFound(err)
	}
	return mapDevice(row), nil
}

func (r *devicesRepo) GetByUserCode(ctx context.Context, userCode string) (domain.Device, error) {
	row, err := r.q.GetDeviceByUserCode(ctx, userCode)
	if err != nil {
		return domain.Device{}, mapNotFound(err)
	}
	return mapDevice(row), nil
}

func (r *devicesRepo) TouchPolled(ctx context.Context, fingerprint string, at time.Time) error {
	return requireRows(r.q.UpdateDeviceLastPolled(ctx, gen.UpdateDeviceLastPolledParams{
		LastPolledAt: mapOptionalTime(&at),
		DeviceCode:   fingerprint,
	}))
}

func (r *devicesRepo) DeleteByUserCode(ctx context.Context, userCode string) error {
	return r.q.DeleteDeviceByUserCode(ctx, userCode)
}

func (r *devicesRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredDevices(ctx, unix(now))
}

func mapDevice(row gen.Device) domain.Device {
	return domain.Device{
		DeviceCode:              row.DeviceCode,
		UserCode:                row.UserCode,
		ClientID:                row.ClientID,
		Scopes:                  splitFields(row.Scopes),
		VerificationURI:         row.VerificationUri,
		VerificationURIComplete: row.VerificationUriComplete,
		CreatedAt:               fromUnix(row.CreatedAt),
		ExpiresIn:               row.ExpiresIn,
		Interval:                row.Interval,
		LastPolledAt:            mapNullTime(row.LastPolledAt),
	}
}
