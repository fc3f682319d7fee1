package bind_group_provider

// BindGroupProviderOption configures a provider in NewBindGroupProvider.
type BindGroupProviderOption func(*bindGroupProvider)

// WithBuffer attaches buf at binding. The provider takes ownership and releases buf in Release.
func WithBuffer(binding int, buf GPUBuffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
	}
}

// WithSharedBuffer attaches buf at binding without taking ownership. Release leaves it alive,
// which lets the resource manager keep the splat buffer across several bind groups.
func WithSharedBuffer(binding int, buf GPUBuffer) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = buf
		p.shared[binding] = true
	}
}
