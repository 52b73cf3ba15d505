package usecases

import (
	"github.com/iwtcode/hexapodService/internal/domain/models"
	"github.com/iwtcode/hexapodService/internal/interfaces"
	"github.com/iwtcode/hexapodService/internal/services/aggregator"
	"github.com/iwtcode/hexapodService/internal/services/telemetry"
	pub "github.com/iwtcode/hexapodService/models"
)

func (u *Usecase) Channels() []models.ChannelState {
	snaps := u.aggregator.Snapshot()
	states := make([]models.ChannelState, 0, len(snaps))
	for _, snap := range snaps {
		states = append(states, channelState(snap))
	}
	return states
}

func (u *Usecase) Channel(name string) (models.ChannelState, error) {
	snap, err := u.aggregator.Read(name)
	if err != nil {
		return models.ChannelState{}, err
	}
	return channelState(snap), nil
}

func (u *Usecase) SetChannelTarget(name string, target float64) (models.ChannelState, error) {
	if err := u.aggregator.SetTarget(name, target); err != nil {
		return models.ChannelState{}, err
	}
	u.logger.Info("Channel target updated", "channel", name, "target", target)
	return u.Channel(name)
}

// Subscribe подписывает на телеметрию устройства; пустое имя - на все устройства.
func (u *Usecase) Subscribe(device string) interfaces.TelemetrySubscription {
	return u.broker.Subscribe(u.subscriberBuffer, telemetry.ForDevice(device))
}

func channelState(snap pub.ChannelSnapshot) models.ChannelState {
	percent, verdict := aggregator.Grade(snap.Average, snap.Target)
	return models.ChannelState{
		ChannelSnapshot: snap,
		Formatted:       aggregator.FormatWithUnit(snap.Average, snap.Unit),
		Percent:         percent,
		Verdict:         verdict,
	}
}
