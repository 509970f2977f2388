// Package upld encodes and decodes the universal payload info header.
//
// The header is a packed little-endian record of 56 bytes that firmware
// loaders read to identify a payload image:
//
//	Offset  Size  Field
//	0       4     Identifier    "UPLD"
//	4       4     HeaderLength  56
//	8       2     SpecRevision
//	10      2     Reserved
//	12      4     Revision      0x00010105
//	16      4     Attribute
//	20      4     Capability
//	24      16    ProducerId    "INTEL", NUL padded
//	40      16    ImageId       image name, truncated to 16 bytes, NUL padded
//
// The layout is consumed by firmware parsing code outside this module and
// must stay byte-for-byte stable. Built payload ELF files carry the same
// record in their .upld_info section, which [FindInELF] extracts.
package upld
