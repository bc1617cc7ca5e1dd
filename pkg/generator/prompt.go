package generator

// DefaultInstruction は 2 枚の画像の後ろに付ける固定の指示文です。
const DefaultInstruction = "Dress the person in the first image in the garment shown in the second image. " +
	"Keep the person's facial identity, body proportions and pose exactly unchanged, " +
	"and replace only their clothing with the garment. " +
	"Render the result photorealistically with ultra-fine detail at high fidelity."

// InstructionZH は同じ指示の中国語版です。意味は DefaultInstruction と同一です。
const InstructionZH = "让图一中的人物换上图二中的服装，保持图一中人物的面部特征、身材比例和动作不变。超级精细的处理。8K质量。"
