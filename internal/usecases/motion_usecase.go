package usecases

import (
	"context"
	"fmt"

	"github.com/iwtcode/hexapodService/internal/domain/models"
	pub "github.com/iwtcode/hexapodService/models"
	apperrors "github.com/iwtcode/hexapodService/pkg/errors"
)

func (u *Usecase) ReadPosition(ctx context.Context, name string) (pub.Vector6, error) {
	return u.hexapodSvc.ReadPosition(ctx, name)
}

// Jog выполняет толчковое перемещение; без явного шага берется выбранный в каталоге.
func (u *Usecase) Jog(ctx context.Context, name string, req models.JogRequest) (models.JogResult, error) {
	axis, ok := pub.ParseAxis(req.Axis)
	if !ok {
		err := fmt.Errorf("%w: %q", apperrors.ErrInvalidAxis, req.Axis)
		return models.JogResult{}, apperrors.NewMotionError(apperrors.ErrInvalidAxis, name, "jog", err)
	}

	step, _ := u.catalog.Current()
	if req.Step != nil {
		step = *req.Step
	}

	if err := u.hexapodSvc.Jog(ctx, name, axis, req.Direction, step); err != nil {
		return models.JogResult{}, err
	}

	var vector pub.Vector6
	vector[axis] = float64(req.Direction) * step
	return models.JogResult{Device: name, Axis: axis.String(), Step: step, Vector: vector}, nil
}

func (u *Usecase) Move(ctx context.Context, name string, vector pub.Vector6) error {
	return u.hexapodSvc.MoveRelative(ctx, name, vector)
}

func (u *Usecase) JogSteps() models.JogStepsResponse {
	step, selected := u.catalog.Current()
	return models.JogStepsResponse{Steps: u.catalog.Steps(), Selected: selected, Step: step}
}

func (u *Usecase) SelectJogStep(index int) (models.JogStepsResponse, error) {
	if err := u.catalog.Select(index); err != nil {
		return models.JogStepsResponse{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidJog, err)
	}
	u.logger.Info("Jog step selected", "index", index)
	return u.JogSteps(), nil
}
