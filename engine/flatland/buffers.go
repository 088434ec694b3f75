package flatland

// bufferStage is the GPU-side mirror of the registry: the shared vertex and
// index buffers, the packed per-item instance buffer, and the indirect
// command buffer. resolve re-uploads only the channels whose dirty flag is
// set, in a fixed order, clearing each flag only after a successful upload.
type bufferStage struct {
	backend Backend

	// initialized flips when InitBuffers has run; until then the instance
	// and command channels have nothing to upload against and keep their
	// flags set.
	initialized bool

	// commandCount is the number of records in the command buffer after the
	// last command upload; always equal to the live group count.
	commandCount int
}

// resolve flushes the dirty channels against the backend. Channel order is a
// hard precondition, checked explicitly: geometry must land first because
// instance and command records reference the per-alphabet bases assigned
// during repack.
//
// Returns:
//   - error: an error if buffer allocation failed; upload flags for the
//     failed and following channels stay set for a later retry
func (s *bufferStage) resolve(reg *registry) error {
	if reg.geometryInvalidated {
		if !s.initialized {
			if err := s.backend.InitBuffers(); err != nil {
				return err
			}
			s.initialized = true
		}

		vertexData, indexData := reg.repackGeometry()
		s.backend.UploadVertices(vertexData)
		s.backend.UploadIndices(indexData)
		reg.geometryInvalidated = false
	}

	if reg.instancesInvalidated {
		if !s.initialized {
			// Nothing to instance against yet; keep the flag so a later
			// resolve retries once geometry has uploaded.
			return nil
		}
		s.backend.UploadInstances(reg.groupDrawData())
		reg.instancesInvalidated = false
	}

	if reg.commandsInvalidated {
		if !s.initialized {
			return nil
		}
		data, count := reg.drawCommandData()
		s.backend.UploadCommands(data)
		s.commandCount = count
		reg.commandsInvalidated = false
	}

	return nil
}
