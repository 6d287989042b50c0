package ble

import (
	"context"
	"fmt"
	"log"
	"time"

	"tinygo.org/x/bluetooth"

	"levelsense/internal/level"
)

// refreshInterval is how often the advertised payload is rewritten.
// BlueZ requires a stop/configure/start cycle to change the data, so
// this stays well below the frame rate.
const refreshInterval = time.Second

// maxFailures is how many consecutive refresh errors are tolerated
// before the advertiser gives up for the rest of the process.
const maxFailures = 5

// Advertiser keeps a BLE advertisement in sync with the newest level
// frame. All state is owned by Run; start it once as its own goroutine.
type Advertiser struct {
	name    string
	adv     *bluetooth.Advertisement
	started bool
}

// NewAdvertiser enables the default adapter and prepares an
// advertisement carrying the given local name.
func NewAdvertiser(name string) (*Advertiser, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}
	return &Advertiser{
		name: name,
		adv:  adapter.DefaultAdvertisement(),
	}, nil
}

// Run re-advertises the newest frame once per refresh interval until
// ctx is cancelled. Refresh errors are logged on the first occurrence;
// after too many in a row the advertiser stops trying.
func (a *Advertiser) Run(ctx context.Context, bc *level.Broadcaster) {
	if a == nil || bc == nil {
		return
	}
	id, ch := bc.Subscribe(8)
	defer bc.Unsubscribe(id)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	var latest level.Snapshot
	have := false
	failures := 0

	stop := func() {
		if a.started {
			if err := a.adv.Stop(); err != nil {
				log.Printf("ble: stop advertisement: %v", err)
			}
			a.started = false
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if snap.Available {
				latest, have = snap, true
			}
		case <-ticker.C:
			if !have {
				continue
			}
			if err := a.refresh(latest); err != nil {
				failures++
				if failures == 1 {
					log.Printf("ble: advertise: %v", err)
				}
				if failures >= maxFailures {
					log.Printf("ble: advertising failed %d times in a row, giving up", failures)
					return
				}
				continue
			}
			failures = 0
		}
	}
}

func (a *Advertiser) refresh(snap level.Snapshot) error {
	if a.started {
		if err := a.adv.Stop(); err != nil {
			return fmt.Errorf("stop: %w", err)
		}
		a.started = false
	}
	err := a.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName: a.name,
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: CompanyID, Data: Frame(snap)},
		},
	})
	if err != nil {
		return fmt.Errorf("configure: %w", err)
	}
	if err := a.adv.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	a.started = true
	return nil
}
