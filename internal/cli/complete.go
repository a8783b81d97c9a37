package cli

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion describes the folioctl command line for shell completion
func Completion() *complete.Command {
	global := map[string]complete.Predictor{
		"addr":     predict.Something,
		"token":    predict.Something,
		"timeout":  predict.Something,
		"currency": predict.Set{"USD", "TRY"},
		"plain":    predict.Nothing,
	}

	sub := map[string]*complete.Command{
		"rollup":  {Flags: map[string]complete.Predictor{"by": predict.Set{"category", "exchange"}}},
		"history": {Flags: map[string]complete.Predictor{"from": predict.Something, "png": predict.Files("*.png")}},
		"perf":    {Flags: map[string]complete.Predictor{"s": predict.Something}},
		"add-symbol": {Flags: map[string]complete.Predictor{
			"id":     predict.Something,
			"name":   predict.Something,
			"code":   predict.Something,
			"unit":   predict.Set{"TL", "DOVIZ", "KARMA"},
			"kind":   predict.Set{"BIST", "YABANCI_BORSA", "KIYMETLI_METAL", "EMTIA", "PARA_PIYASASI", "EUROBOND", "KARMA", "COIN"},
			"sub":    predict.Something,
			"market": predict.Set{"B", "K", "F"},
			"note":   predict.Something,
		}},
		"rm-symbol": {Flags: map[string]complete.Predictor{"id": predict.Something}},
		"tx":        {Flags: map[string]complete.Predictor{"s": predict.Something}},
		"add-tx": {Flags: map[string]complete.Predictor{
			"id":   predict.Something,
			"s":    predict.Something,
			"d":    predict.Something,
			"t":    predict.Set{"BUY", "SELL"},
			"p":    predict.Something,
			"q":    predict.Something,
			"b":    predict.Something,
			"note": predict.Something,
		}},
		"rm-tx": {Flags: map[string]complete.Predictor{"id": predict.Something}},
	}
	for _, c := range Commands {
		if _, ok := sub[c.Name()]; !ok {
			sub[c.Name()] = &complete.Command{}
		}
	}
	for _, name := range []string{"help", "flags", "commands"} {
		sub[name] = &complete.Command{}
	}

	return &complete.Command{Sub: sub, Flags: global}
}
