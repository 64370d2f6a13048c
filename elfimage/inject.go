package elfimage

// InjectStub copies stub over the zero run at c. The bounds were already
// established by CaveFinder.
func InjectStub(raw []byte, c Cave, stub []byte) {
	copy(raw[c.Offset:c.Offset+uint32(len(stub))], stub)
}
