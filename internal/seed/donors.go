package seed

import (
	"context"
	"fmt"

	"bloodlink/internal/utils"
	"bloodlink/pkg/types"
)

type DonorUpserter interface {
	Upsert(ctx context.Context, donor *types.Donor) error
}

type donorSeed struct {
	ID        string
	Name      string
	Email     string
	BloodType types.BloodType
	City      string
	Lat, Lng  float64
	LimitKm   int
}

// demoDonors is one verified, available donor per blood type around Chennai,
// plus an O- donor in Chengalpattu about 62 km from Park Town who only
// matches requests once their preferred limit is raised past that.
//
// To generate new IDs: `go run ./cmd/bloodlink debug nanoid`
var demoDonors = []donorSeed{
	{ID: "Qm3TjX8vKp2LwZ9aYc4RfN7bHs1GdE6u", Name: "Priya Raman", Email: "priya.raman+seed@example.com", BloodType: types.BloodTypeAPos, City: "Egmore", Lat: 13.0732, Lng: 80.2609},
	{ID: "a7Vn2KcP9xQ4mL8tRz3WbY6hJd1FsG5e", Name: "Arun Kumar", Email: "arun.kumar+seed@example.com", BloodType: types.BloodTypeANeg, City: "Mylapore", Lat: 13.0368, Lng: 80.2676},
	{ID: "Zt4Hq8Lm2Xc6Vb9Nw3Ks7Pd1Rf5Gj0Ya", Name: "Divya Sundar", Email: "divya.sundar+seed@example.com", BloodType: types.BloodTypeBPos, City: "T. Nagar", Lat: 13.0418, Lng: 80.2341},
	{ID: "k2Wd7Pq4Zs9Lx3Mc8Vn1Bt6Hy5Jr0GfA", Name: "Karthik Selvam", Email: "karthik.selvam+seed@example.com", BloodType: types.BloodTypeBNeg, City: "Adyar", Lat: 13.0012, Lng: 80.2565},
	{ID: "Rx8Nf3Kd6Ws1Qz9Lp4Vm7Tc2Yb5Hj0Ga", Name: "Meena Iyer", Email: "meena.iyer+seed@example.com", BloodType: types.BloodTypeABPos, City: "Anna Nagar", Lat: 13.0850, Lng: 80.2101},
	{ID: "p5Lc9Vx2Hm7Qd4Zr1Nk8Wt3Fb6Sj0YgB", Name: "Suresh Babu", Email: "suresh.babu+seed@example.com", BloodType: types.BloodTypeABNeg, City: "Velachery", Lat: 12.9815, Lng: 80.2180},
	{ID: "Hy3Tb8Mq5Xw1Kc6Zn9Lp2Vd7Rf4Gs0Ja", Name: "Lakshmi Narayanan", Email: "lakshmi.n+seed@example.com", BloodType: types.BloodTypeOPos, City: "Tambaram", Lat: 12.9249, Lng: 80.1000},
	{ID: "w9Qf4Lz7Xk2Hd5Mn8Vc1Tb6Rs3Jy0GpC", Name: "Vignesh Rao", Email: "vignesh.rao+seed@example.com", BloodType: types.BloodTypeONeg, City: "Royapuram", Lat: 13.1137, Lng: 80.2954},
	{ID: "Cg6Mv1Xs9Kq4Zt7Lb2Nd5Wh8Rf3Jp0Ya", Name: "Anitha Krishnan", Email: "anitha.k+seed@example.com", BloodType: types.BloodTypeONeg, City: "Chengalpattu", Lat: 12.6165, Lng: 79.9747, LimitKm: 50},
}

func (d donorSeed) donor() *types.Donor {
	donor := &types.Donor{
		ID:                      d.ID,
		Name:                    d.Name,
		Email:                   utils.StringPtr(d.Email),
		BloodType:               d.BloodType,
		IsVerified:              true,
		AvailabilityStatus:      types.AvailabilityAvailable,
		NotifyForNearbyRequests: true,
		City:                    utils.StringPtr(d.City),
		State:                   utils.StringPtr("Tamil Nadu"),
		GeoPoint:                types.NewGeoPoint(d.Lat, d.Lng),
	}

	if d.LimitKm > 0 {
		donor.PreferredDistanceLimit = utils.IntPtr(d.LimitKm)
	}

	return donor
}

// SeedDonors upserts the demo donor pool. Running it again resets the demo
// donors to these values.
func SeedDonors(ctx context.Context, repo DonorUpserter) (int, error) {
	for _, seed := range demoDonors {
		if err := repo.Upsert(ctx, seed.donor()); err != nil {
			return 0, fmt.Errorf("failed to seed donor %s: %w", seed.ID, err)
		}
	}

	return len(demoDonors), nil
}
