package models

import (
	"fmt"

	"wellcast/internal/config"
	apierrors "wellcast/internal/errors"
)

// New builds the model described by a configuration entry
func New(spec config.ModelConfig) (Model, error) {
	switch Kind(spec.Kind) {
	case KindARIMA:
		return NewARIMA(spec.Name, arimaOrder(spec)), nil
	case KindDecomposition:
		return NewDecomposition(spec.Name, decompositionOptions(spec)), nil
	case KindRidge:
		return NewRidge(spec.Name, RidgeOptions{Lambda: spec.Ridge.Lambda}), nil
	case KindARIMABoost:
		base := NewARIMA(spec.Name+"_base", arimaOrder(spec))
		return NewBoosted(spec.Name, KindARIMABoost, base, boostOptions(spec)), nil
	case KindDecompositionBoost:
		base := NewDecomposition(spec.Name+"_base", decompositionOptions(spec))
		return NewBoosted(spec.Name, KindDecompositionBoost, base, boostOptions(spec)), nil
	default:
		return nil, apierrors.New(apierrors.KindConfig, "CONFIG_INVALID",
			fmt.Sprintf("model %q has unknown kind %q", spec.Name, spec.Kind))
	}
}

// FromConfig builds every configured model in order
func FromConfig(specs []config.ModelConfig) ([]Model, error) {
	out := make([]Model, 0, len(specs))
	for _, spec := range specs {
		m, err := New(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func arimaOrder(spec config.ModelConfig) ARIMAOrder {
	return ARIMAOrder{P: spec.ARIMA.P, D: spec.ARIMA.D, Q: spec.ARIMA.Q}
}

func decompositionOptions(spec config.ModelConfig) DecompositionOptions {
	return DecompositionOptions{
		Changepoints:       spec.Decomposition.Changepoints,
		ChangepointRange:   spec.Decomposition.ChangepointRange,
		ChangepointPenalty: spec.Decomposition.ChangepointPenalty,
		FourierOrder:       spec.Decomposition.FourierOrder,
	}
}

func boostOptions(spec config.ModelConfig) BoostOptions {
	return BoostOptions{
		Trees:        spec.Boost.Trees,
		Depth:        spec.Boost.Depth,
		LearningRate: spec.Boost.LearningRate,
		MinLeaf:      spec.Boost.MinLeaf,
	}
}
