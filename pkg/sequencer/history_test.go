package sequencer

import "testing"

func TestUndoRedo(t *testing.T) {
	e := newTestEngine(nil)
	e.SetStep(0, 0, true)
	e.ClearTrack(0)
	if e.GetStep(0, 0) {
		t.Fatal("ClearTrack did not clear")
	}
	if !e.CanUndo() || e.CanRedo() {
		t.Fatalf("canUndo=%v canRedo=%v", e.CanUndo(), e.CanRedo())
	}

	if !e.Undo() || !e.GetStep(0, 0) {
		t.Fatal("Undo did not restore the step")
	}
	if !e.CanRedo() {
		t.Error("Redo should be available after Undo")
	}
	if !e.Redo() || e.GetStep(0, 0) {
		t.Fatal("Redo did not re-apply the clear")
	}
	if e.Redo() {
		t.Error("Redo with empty stack succeeded")
	}
}

func TestNewEditDropsRedo(t *testing.T) {
	e := newTestEngine(nil)
	e.ClearTrack(0)
	e.Undo()
	e.ClearTrack(1)
	if e.CanRedo() {
		t.Error("destructive edit should drop the redo stack")
	}
}

func TestUndoIsBounded(t *testing.T) {
	e := newTestEngine(nil)
	for i := 0; i < MaxUndo+10; i++ {
		e.ClearTrack(0)
	}
	n := 0
	for e.Undo() {
		n++
	}
	if n != MaxUndo {
		t.Errorf("undo depth = %d, want %d", n, MaxUndo)
	}
}

func TestUndoRestoresTiming(t *testing.T) {
	e := newTestEngine(nil)
	e.SetLength(32)
	e.SetSwing(80)
	e.SetBPMOverride(200)
	e.SetPosition(30)
	e.ClearPattern()
	if e.StepInterval() != StepDuration(DefaultTempo) {
		t.Fatalf("cleared interval = %v", e.StepInterval())
	}

	e.Undo()
	if e.Length() != 32 || e.Swing() != 80 || e.Tempo() != 200 {
		t.Errorf("length=%d swing=%d tempo=%v after undo", e.Length(), e.Swing(), e.Tempo())
	}
	if e.StepInterval() != StepDuration(200) {
		t.Errorf("interval after undo = %v, want %v", e.StepInterval(), StepDuration(200))
	}
}

func TestCopyPasteTrack(t *testing.T) {
	e := newTestEngine(nil)
	e.SetStep(2, 0, true)
	e.SetStep(2, 7, true)
	e.SetTrigCondition(2, 7, TrigProb50)
	e.SetParamLock(2, 7, ParamPitch, -3)

	if !e.CopyTrack(2) {
		t.Fatal("CopyTrack rejected")
	}
	e.SetStep(2, 0, false) // clipboard is a copy
	if !e.PasteTrack(5) {
		t.Fatal("PasteTrack rejected")
	}

	if !e.GetStep(5, 0) || !e.GetStep(5, 7) {
		t.Error("pasted steps missing")
	}
	if e.TrigCondition(5, 7) != TrigProb50 || e.ParamLock(5, 7, ParamPitch) != -3 {
		t.Error("pasted condition or lock missing")
	}

	e.Undo()
	if e.GetStep(5, 0) {
		t.Error("Undo should revert the paste")
	}
}
