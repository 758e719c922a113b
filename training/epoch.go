package training

import (
	"fmt"
)

// runTrainingEpoch consumes one pass of combined batches: forward, loss,
// accuracy, backward, and one optimizer step per batch, with running
// weighted averages keyed by the combined batch size. Returns the epoch's
// average loss and accuracy.
func (t *Trainer) runTrainingEpoch(epoch int) (float64, float64, error) {
	var losses, accuracies AverageMeter

	t.sampler.Reset()
	bar := NewProgressBar(
		fmt.Sprintf("Train Epoch %d/%d", epoch+1, t.cfg.Epochs),
		t.sampler.NumBatches(),
	)

	step := 0
	for {
		batch, err := t.sampler.Next()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to fetch training batch: %v", err)
		}
		if batch == nil {
			break
		}

		logits := t.model.Forward(batch.Features, true)

		loss, err := t.criterion.Forward(logits, batch.Labels)
		if err != nil {
			return 0, 0, fmt.Errorf("loss computation failed: %v", err)
		}
		losses.Update(loss, batch.Size())

		correct := 0
		for i, row := range logits {
			if ArgMax(row) == int(batch.Labels[i]) {
				correct++
			}
		}
		accuracies.Update(float64(correct)/float64(batch.Size()), batch.Size())

		t.opt.ZeroGrad()
		grad, err := t.criterion.Backward(logits, batch.Labels)
		if err != nil {
			return 0, 0, fmt.Errorf("loss gradient failed: %v", err)
		}
		t.model.Backward(grad)
		t.opt.Step()

		step++
		bar.Update(step, map[string]float64{
			"loss":     losses.Average(),
			"accuracy": accuracies.Average(),
		})
	}
	bar.Finish()

	t.plotter.Plot("loss", "train", epoch, losses.Average())
	t.plotter.Plot("accuracy", "train", epoch, accuracies.Average())

	return losses.Average(), accuracies.Average(), nil
}
