package protocol

func (d *Dispatcher) replyStatus() []byte {
	voltage := uint8(0)
	if d.analog != nil {
		voltage = uint8(d.analog.Voltage() / 16)
	}
	rpm := d.decoder.RPM(d.controller.GearRatio())
	payload := []byte{
		d.battery.Battery(),
		voltage,
		uint8(rpm),
		d.controller.PositionPercent(),
	}
	return buildFrame(respStatus, payload)
}

func (d *Dispatcher) replyVersion() []byte {
	payload := []byte{
		VersionMajor,
		VersionMinor,
		uint8(d.minimumVoltage),
		uint8(d.controller.DefaultSpeed()),
	}
	return buildFrame(respVersion, payload)
}

func (d *Dispatcher) replyLocation() []byte {
	payload := make([]byte, 0, 4)
	payload = appendBE16Signed(payload, d.controller.Location())
	payload = appendBE16Signed(payload, d.controller.TargetLocation())
	return buildFrame(respLocation, payload)
}

func (d *Dispatcher) replyStatusExt() []byte {
	current := uint8(0)
	if d.analog != nil {
		current = d.analog.MotorCurrent()
	}
	rpm := d.decoder.RPM(d.controller.GearRatio())
	posTimes256 := uint16(d.controller.PositionPercent()) * 256

	payload := []byte{uint8(d.controller.Status()), current, uint8(rpm)}
	payload = appendBE16(payload, posTimes256)
	return buildFrame(respStatusExt, payload)
}

func (d *Dispatcher) replyLimits() []byte {
	calibrating := uint8(0)
	if d.controller.Calibrating() {
		calibrating = 1
	}
	payload := []byte{calibrating}
	payload = appendBE16(payload, d.controller.MaxCurtainLength())
	payload = appendBE16(payload, d.controller.FullCurtainLength())
	return buildFrame(respLimits, payload)
}

func (d *Dispatcher) replyDebug() []byte {
	payload := []byte{
		uint8(d.decoder.DirError()),
		uint8(d.decoder.TicksWhileCalibratingEndPoint()),
		uint8(d.decoder.TicksWhileStopped()),
	}
	return buildFrame(respDebug, payload)
}

func (d *Dispatcher) replySensorDebug() []byte {
	hall1, hall2 := d.decoder.SavedTicks()
	payload := make([]byte, 0, 4)
	payload = appendBE16(payload, uint16(hall1))
	payload = appendBE16(payload, uint16(hall2))
	return buildFrame(respSensorDbg, payload)
}
