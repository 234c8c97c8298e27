// Package kernel holds the numerical building blocks of pRF prediction:
// spatial receptive-field kernels, the magnocellular and parvocellular
// temporal impulse responses, the double-gamma haemodynamic response and the
// convolution and integration helpers used to combine them.
package kernel
